package manager

import "context"

// TopUpSource refills the treasury's sale-token balance on request. The
// manager makes one best-effort call when a new round's allocation exceeds
// the balance, then re-reads the balance.
type TopUpSource interface {
	RequestTopUp(ctx context.Context) error
}

// TopUpFunc adapts a function to TopUpSource.
type TopUpFunc func(ctx context.Context) error

// RequestTopUp calls f.
func (f TopUpFunc) RequestTopUp(ctx context.Context) error { return f(ctx) }

// MockTopUp is a test double for TopUpSource.
// RequestTopUpFn must be set before RequestTopUp is called.
type MockTopUp struct {
	RequestTopUpFn func(ctx context.Context) error
	Calls          int
}

func (m *MockTopUp) RequestTopUp(ctx context.Context) error {
	m.Calls++
	return m.RequestTopUpFn(ctx)
}
