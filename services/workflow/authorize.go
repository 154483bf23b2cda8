package workflow

import "context"

// Authorizer gates run submission before the engine is ever invoked.
// Billing, credits and user quotas all live behind this hook; the engine
// itself never checks entitlements.
type Authorizer interface {
	AuthorizeRun(ctx context.Context, workflowID string) error
}

// AllowAll authorizes every run. It is the default when no billing system is
// wired in.
type AllowAll struct{}

func (AllowAll) AuthorizeRun(context.Context, string) error { return nil }
