package main

import (
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configFile string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "wboard-connector",
		Short:         "Signed request gateway and auto-login service for the wboard console",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configFile, "config-file", "f", "", "Connector configuration file (YAML)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override the configured log level")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newRotateKeyCmd(opts))
	cmd.AddCommand(newShowKeyCmd(opts))
	cmd.AddCommand(newSignCmd())
	return cmd
}

// load reads the config file and applies persistent flag overrides.
func (o *rootOptions) load() (fileConfig, error) {
	cfg, err := loadConfig(o.configFile)
	if err != nil {
		return cfg, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	return cfg, nil
}
