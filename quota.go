package potatosync

import (
	"context"
	"fmt"
)

// QuotaGate limits the number of objects in a principal's namespace. The
// count is taken from the backend on every call and never cached.
type QuotaGate struct {
	Limit int
}

// Check counts the principal's objects and allows the upload while the count
// is below the limit.
func (q QuotaGate) Check(ctx context.Context, p Principal, backend Backend) (QuotaDecision, error) {
	used, err := backend.Count(ctx, p.Namespace())
	if err != nil {
		return QuotaDecision{}, fmt.Errorf("check quota: %w", err)
	}
	return QuotaDecision{Allowed: used < q.Limit, Used: used}, nil
}

// Status returns the principal's current usage next to the limit.
func (q QuotaGate) Status(ctx context.Context, p Principal, backend Backend) (QuotaStatus, error) {
	used, err := backend.Count(ctx, p.Namespace())
	if err != nil {
		return QuotaStatus{}, fmt.Errorf("quota status: %w", err)
	}
	return QuotaStatus{Used: used, Limit: q.Limit}, nil
}
