package driven

import "context"

// INotifier raises a user-visible notification. Delivery is best effort and
// independent of any network send the caller performed.
type INotifier interface {
	Notify(ctx context.Context, title, body string) error
}
