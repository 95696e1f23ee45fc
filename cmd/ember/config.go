package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ember/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as TOML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path := configFrom(cmd.Context())
		out := cmd.OutOrStdout()
		if path == "" {
			fmt.Fprintln(out, "# built-in defaults")
		} else {
			fmt.Fprintf(out, "# loaded from %s\n", path)
		}
		return config.WriteTOML(out, cfg)
	},
}
