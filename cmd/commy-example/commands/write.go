package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var writeCmd = &cobra.Command{
	Use:   "write <service> <variable> <value>",
	Short: "Write a shared variable's value",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		serviceName, variableName, value := args[0], args[1], args[2]

		c, err := connectAndAuthenticate(ctx)
		if err != nil {
			return err
		}
		defer c.Disconnect(ctx)

		serviceID, err := resolveService(ctx, c, serviceName)
		if err != nil {
			return err
		}

		if err := c.WriteVariable(ctx, serviceID, variableName, []byte(value)); err != nil {
			return fmt.Errorf("writing variable %s: %w", variableName, err)
		}

		cmd.Printf("wrote %s/%s\n", serviceName, variableName)
		return nil
	},
}
