// Package retry wraps github.com/deepnoodle-ai/gooey/retry around C6 model
// calls made from the Pipeline. C6 itself never retries (§7): a failed
// embed/chat call already falls back locally. This wrapper sits one layer
// up, around the whole submit-drive-collect round trip, and only retries
// the errkind.Network/Tls/Protocol kinds that indicate a transient
// transport failure rather than a malformed response.
package retry

import (
	"context"
	"time"

	"github.com/deepnoodle-ai/gooey/retry"

	"github.com/toyinlola/commitgroup/internal/errkind"
)

// DefaultMaxAttempts bounds how many times a transient model-call failure
// is retried before the caller sees the last error.
const DefaultMaxAttempts = 3

// Do retries fn up to maxAttempts times, backing off exponentially, but
// only for errors classified Network, Tls, or Protocol; any other error
// kind (or an unclassified error) surfaces immediately.
func Do(ctx context.Context, maxAttempts int, fn func() error) error {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return retry.DoSimple(ctx, fn,
		retry.WithMaxAttempts(maxAttempts),
		retry.WithBackoff(200*time.Millisecond, 5*time.Second),
		retry.WithJitter(0.1),
		retry.WithRetryIf(isTransient),
	)
}

func isTransient(err error) bool {
	return errkind.Is(err, errkind.Network) ||
		errkind.Is(err, errkind.Tls) ||
		errkind.Is(err, errkind.Protocol)
}
