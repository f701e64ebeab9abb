// Command volunteerctl administers volunteer applications from the shell.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"volunteercore/internal/app"
	"volunteercore/internal/config"
	"volunteercore/internal/logging"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	envFile    string
	output     string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "volunteerctl",
		Short: "Manage volunteer applications",
		Long: `volunteerctl submits, reviews and inspects volunteer applications
against the configured store, and can seed directory fixtures or run the
HTTP API in the foreground.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch opts.output {
			case outputTable, outputJSON:
				return nil
			default:
				return fmt.Errorf("unknown output format %q", opts.output)
			}
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to YAML config file")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Path to dotenv file")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", outputTable, "Output format: table or json")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override the configured log level")

	root.AddCommand(newSubmitCmd(opts))
	root.AddCommand(newStatusCmd(opts))
	root.AddCommand(newWithdrawCmd(opts))
	root.AddCommand(newGetCmd(opts))
	root.AddCommand(newListCmd(opts))
	root.AddCommand(newInboxCmd(opts))
	root.AddCommand(newSeedCmd(opts))
	root.AddCommand(newServeCmd(opts))

	return root
}

func (o *rootOptions) loadConfig() (config.Config, error) {
	cfg, err := config.LoadFiles(o.envFile, o.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	return cfg, nil
}

// withApp opens the configured backends for the duration of fn.
func (o *rootOptions) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}
	return o.withAppConfig(cmd, cfg, fn)
}

func (o *rootOptions) withAppConfig(cmd *cobra.Command, cfg config.Config, fn func(ctx context.Context, a *app.App) error) error {
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := app.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	runErr := fn(ctx, a)
	if closeErr := a.Close(); closeErr != nil && runErr == nil {
		return closeErr
	}
	return runErr
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
