package notify

import (
	"context"

	"go.uber.org/multierr"
)

// Message is a short human-readable notice, e.g. a finished session summary.
type Message struct {
	Title string
	Text  string
}

type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// Multi fans a message out to every configured notifier.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, msg Message) error {
	var errs error
	for _, n := range m {
		if n == nil {
			continue
		}
		errs = multierr.Append(errs, n.Notify(ctx, msg))
	}
	return errs
}
