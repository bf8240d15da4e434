package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ciresnave/commy-go/pkg/wire"
)

var watchCmd = &cobra.Command{
	Use:   "watch <service> <variable>",
	Short: "Subscribe to a variable and print changes until interrupted",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		serviceName, variableName := args[0], args[1]

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		c, err := connectAndAuthenticate(ctx)
		if err != nil {
			return err
		}
		defer c.Disconnect(ctx)

		serviceID, err := resolveService(ctx, c, serviceName)
		if err != nil {
			return err
		}

		if err := c.Subscribe(ctx, serviceID, variableName); err != nil {
			return fmt.Errorf("subscribing to %s: %w", variableName, err)
		}

		fileEvents := make(chan []string)
		if err := c.StartFileMonitoring(ctx); err != nil {
			cmd.PrintErrf("local file monitoring unavailable, remote notifications only: %v\n", err)
		} else {
			go func() {
				for {
					ev, err := c.WaitForFileChange(ctx)
					if err != nil {
						return
					}
					select {
					case fileEvents <- ev.ChangedVariables:
					case <-ctx.Done():
						return
					}
				}
			}()
		}

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

		cmd.Printf("watching %s/%s, press Ctrl+C to stop\n", serviceName, variableName)

		for {
			select {
			case <-sigChan:
				return nil
			case msg := <-c.Notifications():
				if vc, ok := msg.(wire.VariableChanged); ok && vc.VariableName == variableName {
					cmd.Printf("remote change: %s/%s = %q (version %d)\n", serviceName, variableName, vc.Data, vc.Version)
				}
			case changed := <-fileEvents:
				for _, name := range changed {
					if name == variableName {
						cmd.Printf("local change detected in %s\n", serviceName)
					}
				}
			}
		}
	},
}
