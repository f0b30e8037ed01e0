package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/wboard/connector/signature"
)

type signOptions struct {
	secret    string
	body      string
	siteID    string
	timestamp int64
	url       string
	method    string
}

func newSignCmd() *cobra.Command {
	opts := &signOptions{}

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign a request body the way the board does",
		Long: "Print the signature headers for a request body, or send the signed request\n" +
			"when --url is given. The secret is read from WBOARD_SECRET when --secret is empty.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.secret == "" {
				opts.secret = os.Getenv("WBOARD_SECRET")
			}
			if opts.secret == "" {
				return errors.New("a secret is required (--secret or WBOARD_SECRET)")
			}
			return runSign(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.secret, "secret", "", "Shared secret")
	cmd.Flags().StringVar(&opts.body, "body", "", "Request body")
	cmd.Flags().StringVar(&opts.siteID, "site-id", "", "Value of the site id header")
	cmd.Flags().Int64Var(&opts.timestamp, "timestamp", 0, "Unix timestamp to sign (default now)")
	cmd.Flags().StringVar(&opts.url, "url", "", "Send the signed request to this URL")
	cmd.Flags().StringVar(&opts.method, "method", http.MethodGet, "HTTP method used with --url")
	return cmd
}

func runSign(cmd *cobra.Command, opts *signOptions) error {
	now := time.Now()
	if opts.timestamp != 0 {
		now = time.Unix(opts.timestamp, 0)
	}

	body := []byte(opts.body)
	target := opts.url
	if target == "" {
		target = "http://localhost/"
	}
	req, err := http.NewRequestWithContext(cmd.Context(), opts.method, target, bytes.NewReader(body))
	if err != nil {
		return err
	}
	if err := signature.SignRequest(req, opts.secret, opts.siteID, now, body); err != nil {
		return err
	}
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}

	out := cmd.OutOrStdout()
	if opts.url == "" {
		for _, name := range []string{signature.HeaderTimestamp, signature.HeaderSignature, signature.HeaderSiteID} {
			if v := req.Header.Get(name); v != "" {
				fmt.Fprintf(out, "%s: %s\n", name, v)
			}
		}
		return nil
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	fmt.Fprintln(out, resp.Status)
	_, err = io.Copy(out, resp.Body)
	if err == nil && resp.StatusCode >= http.StatusBadRequest {
		err = errors.New("request rejected with status " + strconv.Itoa(resp.StatusCode))
	}
	return err
}
