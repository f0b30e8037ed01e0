package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newRotateKeyCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rotate-key",
		Short: "Replace the shared secret and print the new value",
		Long: "Replace the shared secret and print the new value.\n\n" +
			"Requests signed with the previous secret are rejected immediately.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := openKeyBackend(root)
			if err != nil {
				return err
			}
			defer b.Close()

			secret, err := b.engine.RotateSecret(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), secret)
			return nil
		},
	}
}

func newShowKeyCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show-key",
		Short: "Print the shared secret, creating it when absent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := openKeyBackend(root)
			if err != nil {
				return err
			}
			defer b.Close()

			secret, err := b.engine.EnsureSecret(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), secret)
			return nil
		},
	}
}

func openKeyBackend(root *rootOptions) (*backend, error) {
	cfg, err := root.load()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(quieter(logger.GetLevel(), logrus.WarnLevel))
	return openBackend(cfg, logger, true)
}

// quieter returns the less verbose of a and b.
func quieter(a, b logrus.Level) logrus.Level {
	if a < b {
		return a
	}
	return b
}
