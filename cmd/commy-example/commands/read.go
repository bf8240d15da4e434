package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var readCmd = &cobra.Command{
	Use:   "read <service> <variable>",
	Short: "Read a shared variable's current value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		serviceName, variableName := args[0], args[1]

		c, err := connectAndAuthenticate(ctx)
		if err != nil {
			return err
		}
		defer c.Disconnect(ctx)

		serviceID, err := resolveService(ctx, c, serviceName)
		if err != nil {
			return err
		}

		data, err := c.ReadVariable(ctx, serviceID, variableName)
		if err != nil {
			return fmt.Errorf("reading variable %s: %w", variableName, err)
		}

		cmd.Printf("%s/%s = %q\n", serviceName, variableName, data)
		return nil
	},
}
