package health

import "context"

// DBPinger checks record store connectivity.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// ProviderChecker checks an external capability provider.
type ProviderChecker interface {
	HealthCheck(ctx context.Context) error
}
