package enrollment

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrNotFound          = errors.New("Enrollment not found")
	ErrInvalidTransition = errors.New("payment status cannot transition with this action")
	ErrInvalidAction     = errors.New("invalid payment action")
)

// AmountError reports a claimed amount that differs from the required one.
type AmountError struct {
	Type     PaymentType
	Claimed  int64
	Required int64
}

func (e *AmountError) Error() string {
	if e.Type == TypePartial {
		return "Partial payment amount must be 10% of course price"
	}
	return "Full payment amount must be equal to course price"
}

// NotificationError wraps a failed confirmation email; nothing was persisted.
type NotificationError struct {
	Err error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("sending enrollment email: %v", e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }

// ErrLocked is returned while another request is processing the same enrollment.
var ErrLocked = errors.New("payment update already in progress")
