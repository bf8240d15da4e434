package commands

import (
	"context"
	"fmt"

	"github.com/ciresnave/commy-go/pkg/commyclient"
	"github.com/ciresnave/commy-go/pkg/commyerr"
	"github.com/ciresnave/commy-go/pkg/wire"
)

// connectAndAuthenticate builds a client against the global flags, connects,
// and authenticates to the configured tenant.
func connectAndAuthenticate(ctx context.Context) (*commyclient.Client, error) {
	if Flags.ServerURL == "" {
		return nil, fmt.Errorf("no server URL configured (use --server or COMMY_SERVER_URL)")
	}

	c := commyclient.New(Flags.ServerURL,
		commyclient.WithRequestTimeout(Flags.Timeout),
		commyclient.WithMaxVariableSize(cfg.MaxVariableSize),
	)

	if err := c.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", Flags.ServerURL, err)
	}

	if _, err := c.Authenticate(ctx, Flags.TenantID, wire.APIKeyCredentials{Key: Flags.APIKey}); err != nil {
		_ = c.Disconnect(ctx)
		return nil, fmt.Errorf("authenticating to tenant %s: %w", Flags.TenantID, err)
	}

	return c, nil
}

// resolveService fetches serviceName, creating it on first use.
func resolveService(ctx context.Context, c *commyclient.Client, serviceName string) (string, error) {
	svc, err := c.GetService(ctx, Flags.TenantID, serviceName)
	if err == nil {
		return svc.ServiceID, nil
	}
	if !commyerr.IsNotFound(err) {
		return "", fmt.Errorf("looking up service %s: %w", serviceName, err)
	}

	serviceID, err := c.CreateService(ctx, Flags.TenantID, serviceName)
	if err != nil {
		return "", fmt.Errorf("creating service %s: %w", serviceName, err)
	}
	return serviceID, nil
}
