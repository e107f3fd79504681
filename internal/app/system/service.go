package system

import "context"

// Service is a lifecycle-managed component. Background workers (the feed
// refresher, the session janitor) implement it so the manager can start and
// stop them deterministically, including their timers.
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// NoopService satisfies Service for components that have no background work
// but still want to appear in the lifecycle registry.
type NoopService struct {
	ServiceName string
}

func (s NoopService) Name() string                   { return s.ServiceName }
func (s NoopService) Start(context.Context) error    { return nil }
func (s NoopService) Stop(ctx context.Context) error { return nil }
