package scheduler

import "context"

const cancellationBatchSize = 100

// ApplyDueCancellationsJob cancels subscriptions whose cancel-at-period-end
// flag is set and whose current period has elapsed.
func (s *Scheduler) ApplyDueCancellationsJob(ctx context.Context) (int, error) {
	return s.subscriptions.ApplyDueCancellations(ctx, cancellationBatchSize)
}
