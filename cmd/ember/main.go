package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	"golang.org/x/term"

	"ember/internal/config"
	"ember/internal/version"
)

var rootCmd = &cobra.Command{
	Use:           "ember",
	Short:         "ember evaluation core tooling",
	Long:          `ember runs single evaluation-core operations and inspects type-feedback profiles`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		cmd.SetContext(withConfig(cmd.Context(), cfg, path))
		return nil
	},
}

func init() {
	rootCmd.Version = version.Plain()

	rootCmd.AddCommand(evalCmd)
	rootCmd.AddCommand(feedbackCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("config", "", "config file (default: nearest ember.toml or ember.yaml)")
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().String("trace", "", "trace output file (\"-\" for stderr)")
	rootCmd.PersistentFlags().String("trace-level", "", "trace level (off|error|call|op|debug)")
	rootCmd.PersistentFlags().String("trace-mode", "", "trace storage mode (stream|ring|both|log)")
	rootCmd.PersistentFlags().Int("trace-ring-size", 0, "ring buffer size for ring mode")
	rootCmd.PersistentFlags().Duration("trace-heartbeat", 0, "heartbeat interval (0 disables)")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "ember: %v\n", err)
		}
		os.Exit(1)
	}
}

type configKey struct{}

type loadedConfig struct {
	cfg  config.Config
	path string
}

func withConfig(ctx context.Context, cfg config.Config, path string) context.Context {
	return context.WithValue(ctx, configKey{}, loadedConfig{cfg: cfg, path: path})
}

// configFrom returns the config loaded by the root command, or the defaults.
func configFrom(ctx context.Context) (config.Config, string) {
	if lc, ok := ctx.Value(configKey{}).(loadedConfig); ok {
		return lc.cfg, lc.path
	}
	return config.Default(), ""
}

func loadConfig(cmd *cobra.Command) (config.Config, string, error) {
	path, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return config.Config{}, "", fmt.Errorf("failed to get config flag: %w", err)
	}
	if path != "" {
		cfg, err := config.Load(path)
		return cfg, path, err
	}
	wd, err := os.Getwd()
	if err != nil {
		return config.Config{}, "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return config.Discover(wd)
}

// useColor resolves the --color flag.
func useColor(cmd *cobra.Command) (bool, error) {
	mode, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return false, fmt.Errorf("failed to get color flag: %w", err)
	}
	switch mode {
	case "", "auto":
		return isTerminal(os.Stdout), nil
	case "on":
		return true, nil
	case "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid --color value %q (expected auto|on|off)", mode)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// configureLogging sets up the commonlog backend used by the log trace mode.
func configureLogging(verbosity int) {
	commonlog.Configure(verbosity, nil)
}
