package transactions

import "context"

// DiscardManager runs the unit of work without any transaction, for
// storages that do not support them.
type DiscardManager struct{}

func (m DiscardManager) Do(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}
