package notify

import (
	"context"
	"errors"

	"github.com/wolfman30/patient-intake/internal/intake"
)

// Fanout tells every notifier about a booking, even when an earlier one fails.
type Fanout []intake.Notifier

// NewFanout drops nil notifiers. It returns nil when none remain.
func NewFanout(notifiers ...intake.Notifier) intake.Notifier {
	var out Fanout
	for _, n := range notifiers {
		if n != nil {
			out = append(out, n)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return out
}

func (f Fanout) BookingConfirmed(ctx context.Context, b intake.Booking) error {
	var errs []error
	for _, n := range f {
		if err := n.BookingConfirmed(ctx, b); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
