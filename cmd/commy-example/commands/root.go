// Package commands implements the commy-example CLI commands.
package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ciresnave/commy-go/internal/logger"
	"github.com/ciresnave/commy-go/pkg/config"
)

// Flags holds the values of global persistent flags, synced from rootCmd's
// PersistentPreRun so subcommands can read them without threading the
// *cobra.Command through every call.
var Flags struct {
	ServerURL string
	TenantID  string
	APIKey    string
	Timeout   time.Duration
}

var cfg *config.Config

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "commy-example",
	Short: "Commy client SDK example",
	Long: `commy-example demonstrates the Commy client SDK: connecting to a
server, authenticating against a tenant, creating a service, and
reading, writing, and watching a shared variable.

Use "commy-example [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load("")
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		if err := logger.Init(logger.Config{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			Output: "stdout",
		}); err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}

		Flags.ServerURL, _ = cmd.Flags().GetString("server")
		if Flags.ServerURL == "" {
			Flags.ServerURL = cfg.ServerURL
		}
		Flags.TenantID, _ = cmd.Flags().GetString("tenant")
		Flags.APIKey, _ = cmd.Flags().GetString("api-key")
		Flags.Timeout = cfg.DefaultTimeout

		return nil
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("server", "", "Commy server URL (overrides COMMY_SERVER_URL)")
	rootCmd.PersistentFlags().String("tenant", "default", "Tenant to authenticate against")
	rootCmd.PersistentFlags().String("api-key", "", "API key credential")

	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(writeCmd)
	rootCmd.AddCommand(watchCmd)
}
