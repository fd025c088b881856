package enrollment

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/student"
)

var NowFunc = time.Now // mockable

type Service struct {
	conf     *core.Config
	store    Store
	mailSvc  core.EmailService
	logger   core.Logger
	locker   Locker
	genCreds student.CredentialsFunc
}

// NewService creates the enrollment Service. locker may be nil.
func NewService(conf *core.Config, store Store, mailSvc core.EmailService, logger core.Logger, locker Locker) *Service {
	return &Service{
		conf:     conf,
		store:    store,
		mailSvc:  mailSvc,
		logger:   logger,
		locker:   locker,
		genCreds: student.GenerateCredentials,
	}
}

// GetDetails returns the populated enrollment without locking it.
func (svc *Service) GetDetails(ctx context.Context, id string) (Enrollment, error) {
	return svc.store.GetEnrollment(ctx, id)
}

// UpdatePaymentStatus approves or rejects the payment submitted for an enrollment.
//
// The whole update runs in one unit of work holding the enrollment lock.
// An approval is committed only once the confirmation email was accepted;
// a rejection is committed whatever the email outcome.
func (svc *Service) UpdatePaymentStatus(ctx context.Context, id string, u PaymentUpdate) (PaymentUpdateResult, error) {
	if svc.locker != nil {
		release, err := svc.locker.Acquire(ctx, "enrollment:payment:"+id)
		if err != nil {
			return PaymentUpdateResult{}, err
		}
		defer release()
	}

	uow, err := svc.store.Begin(ctx)
	if err != nil {
		return PaymentUpdateResult{}, errors.Wrap(err, "beginning unit of work")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer uow.Rollback()

	e, err := uow.FindEnrollment(ctx, id, true)
	if err != nil {
		return PaymentUpdateResult{}, errors.Wrap(err, "loading enrollment")
	}

	t, err := Plan(e, u, svc.genCreds, NowFunc().UTC())
	if err != nil {
		return PaymentUpdateResult{}, err
	}

	extra := map[string]interface{}{
		"enrollment_id": id,
		"action":        t.Action,
		"payment_type":  t.PaymentType,
	}

	if t.Action == ActionApprove {
		if err = svc.mailSvc.SendMessage(ctx, svc.confirmationMessage(t)); err != nil {
			return PaymentUpdateResult{}, &NotificationError{Err: err}
		}
	} else if err = svc.mailSvc.SendMessage(ctx, svc.rejectionMessage(t)); err != nil {
		svc.logger.Warn("payment rejection email failed", err, extra, u.ReviewedBy)
	}

	if err = svc.apply(ctx, uow, t); err != nil {
		return PaymentUpdateResult{}, errors.Wrap(err, "applying payment update")
	}
	if err = uow.Commit(); err != nil {
		return PaymentUpdateResult{}, errors.Wrap(err, "committing payment update")
	}

	extra["payment_status"] = t.Enrollment.PaymentStatus
	svc.logger.Info("payment status updated", extra, u.ReviewedBy)
	return t.Result(), nil
}

func (svc *Service) apply(ctx context.Context, uow UnitOfWork, t Transition) error {
	if t.DeletePaymentID != "" {
		if err := uow.DeletePayment(ctx, t.DeletePaymentID); err != nil {
			return err
		}
	}
	if err := uow.SaveEnrollment(ctx, t.Enrollment); err != nil {
		return err
	}
	if t.Student != nil {
		return uow.SaveStudent(ctx, *t.Student)
	}
	return nil
}
