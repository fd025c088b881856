package enrollment

import (
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/student"
)

// Transition is the complete next state computed for a PaymentUpdate.
// Nothing is persisted or sent while it is built.
type Transition struct {
	Action      Action
	PaymentType PaymentType

	// Enrollment is the next enrollment state, relations included.
	Enrollment Enrollment
	// DeletePaymentID is the payment record dropped by a rejection.
	DeletePaymentID string

	// set on approval only
	Student     *student.Student
	Credentials *student.Credentials

	RejectionReason string
}

func (t Transition) Result() PaymentUpdateResult {
	return PaymentUpdateResult{
		EnrollmentID:    t.Enrollment.ID,
		PaymentStatus:   t.Enrollment.PaymentStatus,
		AmountPaid:      t.Enrollment.AmountPaid,
		AmountRemaining: t.Enrollment.AmountRemaining,
		RejectionReason: t.RejectionReason,
	}
}

// EffectivePrice is the price snapshot taken at checkout, or the course price when absent.
func EffectivePrice(e Enrollment) int64 {
	if e.CourseAmount != nil && *e.CourseAmount > 0 {
		return *e.CourseAmount
	}
	return e.Course.Price
}

// RequiredAmount is the exact amount expected for a payment type:
// ceil(10% of price) for partial and the whole price for full.
func RequiredAmount(price int64, typ PaymentType) int64 {
	if typ == TypePartial {
		return (price + 9) / 10
	}
	return price
}

// Plan validates u against e and computes the resulting Transition.
// gen is only called on approval.
func Plan(e Enrollment, u PaymentUpdate, gen student.CredentialsFunc, now time.Time) (Transition, error) {
	if u.Action != ActionApprove && u.Action != ActionReject {
		return Transition{}, ErrInvalidAction
	}
	if u.PaymentType != TypePartial && u.PaymentType != TypeFull {
		return Transition{}, ErrInvalidAction
	}

	price := EffectivePrice(e)
	if required := RequiredAmount(price, u.PaymentType); u.AmountPaid != required {
		return Transition{}, &AmountError{Type: u.PaymentType, Claimed: u.AmountPaid, Required: required}
	}
	partial := RequiredAmount(price, TypePartial)

	t := Transition{Action: u.Action, PaymentType: u.PaymentType, Enrollment: e}
	next := &t.Enrollment
	next.UpdatedAt = now

	if u.Action == ActionReject {
		t.RejectionReason = u.RejectionReason
		if u.PaymentType == TypePartial {
			t.DeletePaymentID = e.PartialPaymentID
			next.PartialPaymentID, next.PartialPaymentDetails = "", nil
			next.PaymentStatus, next.AmountPaid, next.AmountRemaining = StatusUnpaid, 0, price
			return t, nil
		}

		t.DeletePaymentID = e.FullPaymentID
		next.FullPaymentID, next.FullPaymentDetails = "", nil
		if e.PartialPaymentID != "" {
			next.PaymentStatus, next.AmountPaid, next.AmountRemaining = StatusPartialPaid, partial, price-partial
		} else {
			next.PaymentStatus, next.AmountPaid, next.AmountRemaining = StatusUnpaid, 0, price
		}
		return t, nil
	}

	switch {
	case u.PaymentType == TypePartial && e.PaymentStatus == StatusUnpaid:
		next.PaymentStatus, next.AmountPaid, next.AmountRemaining = StatusPartialPaid, partial, price-partial
	case u.PaymentType == TypeFull && (e.PaymentStatus == StatusUnpaid || e.PaymentStatus == StatusPartialPaid):
		next.PaymentStatus, next.AmountPaid, next.AmountRemaining = StatusFullyPaid, price, 0
	default:
		return Transition{}, ErrInvalidTransition
	}

	creds, err := gen(e.Student)
	if err != nil {
		return Transition{}, errors.Wrap(err, "generating lms credentials")
	}
	stdnt := e.Student
	stdnt.LmsID = creds.LmsID
	if err = stdnt.SetLmsPassword(creds.Password); err != nil {
		return Transition{}, errors.Wrap(err, "hashing lms password")
	}
	// blocked accounts stay blocked
	if stdnt.AccountStatus == student.StatusPending {
		stdnt.AccountStatus = student.StatusVerified
	}
	stdnt.UpdatedAt = now

	t.Student = &stdnt
	t.Credentials = &creds
	next.Student = stdnt
	return t, nil
}
