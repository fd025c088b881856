package enrollment_test

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/student"
	emailsvc "github.com/trezcool/academia/services/email"
	inmemdb "github.com/trezcool/academia/storage/database/inmem"
	"github.com/trezcool/academia/testutil"
)

var errSMTPDown = errors.New("smtp: connection refused")

type testEnv struct {
	db     *inmemdb.DB
	store  enrollment.Store
	mail   *emailsvc.ConsoleService
	logger *testutil.LoggerMock
	svc    *enrollment.Service
}

func newTestEnv(t *testing.T, locker enrollment.Locker) *testEnv {
	t.Helper()
	conf := testutil.NewConfig()
	env := &testEnv{
		db:     inmemdb.Open(),
		mail:   emailsvc.NewConsoleServiceMock(conf),
		logger: new(testutil.LoggerMock),
	}
	env.store = inmemdb.NewEnrollmentStore(env.db)
	env.svc = enrollment.NewService(conf, env.store, env.mail, env.logger, locker)
	return env
}

func (env *testEnv) get(t *testing.T, id string) enrollment.Enrollment {
	t.Helper()
	e, err := env.svc.GetDetails(context.Background(), id)
	require.NoError(t, err)
	return e
}

func approve(typ enrollment.PaymentType, amount int64) enrollment.PaymentUpdate {
	return enrollment.PaymentUpdate{Action: enrollment.ActionApprove, PaymentType: typ, AmountPaid: amount}
}

func reject(typ enrollment.PaymentType, amount int64, reason string) enrollment.PaymentUpdate {
	return enrollment.PaymentUpdate{Action: enrollment.ActionReject, PaymentType: typ, AmountPaid: amount, RejectionReason: reason}
}

func TestService_ApprovePartialThenFull(t *testing.T) {
	env := newTestEnv(t, nil)
	f := testutil.SeedEnrollment(env.db, enrollment.StatusUnpaid, true, false)
	ctx := context.Background()

	res, err := env.svc.UpdatePaymentStatus(ctx, f.Enrollment.ID, approve(enrollment.TypePartial, 1000))
	require.NoError(t, err)
	assert.Equal(t, enrollment.PaymentUpdateResult{
		EnrollmentID:    f.Enrollment.ID,
		PaymentStatus:   enrollment.StatusPartialPaid,
		AmountPaid:      1000,
		AmountRemaining: 9000,
	}, res)

	sent := env.mail.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, f.Student.Email, sent[0].To[0].Address)
	assert.Equal(t, "Enrollment Confirmed: "+f.Course.Title, sent[0].Subject)

	e := env.get(t, f.Enrollment.ID)
	assert.Equal(t, enrollment.StatusPartialPaid, e.PaymentStatus)
	assert.Equal(t, student.StatusVerified, e.Student.AccountStatus)
	require.NotEmpty(t, e.Student.LmsID)
	assert.Contains(t, sent[0].TextContent, e.Student.LmsID)
	assert.Contains(t, sent[0].TextContent, "https://lms.example.com/login")
	assert.Contains(t, sent[0].HTMLContent, e.Student.LmsID)

	data := sent[0].TemplateData.(map[string]interface{})
	assert.NoError(t, e.Student.CheckLmsPassword(data["LmsPassword"].(string)))
	lmsID := e.Student.LmsID

	res, err = env.svc.UpdatePaymentStatus(ctx, f.Enrollment.ID, approve(enrollment.TypeFull, 10000))
	require.NoError(t, err)
	assert.Equal(t, enrollment.StatusFullyPaid, res.PaymentStatus)
	assert.Equal(t, int64(10000), res.AmountPaid)
	assert.Zero(t, res.AmountRemaining)

	e = env.get(t, f.Enrollment.ID)
	assert.Equal(t, enrollment.StatusFullyPaid, e.PaymentStatus)
	assert.Equal(t, lmsID, e.Student.LmsID, "lms id is kept on re-approval")
	assert.Len(t, env.mail.SentMessages(), 2)
	assert.Equal(t, []string{"info", "info"}, env.logger.Levels())
}

func TestService_InvalidAmount(t *testing.T) {
	tests := []struct {
		name   string
		from   enrollment.PaymentStatus
		update enrollment.PaymentUpdate
	}{
		{name: "approve full 9999", from: enrollment.StatusUnpaid, update: approve(enrollment.TypeFull, 9999)},
		{name: "approve partial 10% of course price", from: enrollment.StatusUnpaid, update: approve(enrollment.TypePartial, 1200)},
		{name: "reject partial wrong amount", from: enrollment.StatusPartialPaid, update: reject(enrollment.TypePartial, 1, "")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			f := testutil.SeedEnrollment(env.db, tt.from, true, false)

			_, err := env.svc.UpdatePaymentStatus(context.Background(), f.Enrollment.ID, tt.update)
			var amtErr *enrollment.AmountError
			require.True(t, errors.As(err, &amtErr))

			e := env.get(t, f.Enrollment.ID)
			assert.Equal(t, tt.from, e.PaymentStatus)
			assert.Equal(t, f.Enrollment.AmountPaid, e.AmountPaid)
			assert.Equal(t, f.Enrollment.AmountRemaining, e.AmountRemaining)
			assert.NotNil(t, e.PartialPaymentDetails)
			assert.Empty(t, env.mail.SentMessages())
		})
	}
}

func TestService_NotFound(t *testing.T) {
	env := newTestEnv(t, nil)
	_, err := env.svc.UpdatePaymentStatus(context.Background(), "missing", approve(enrollment.TypeFull, 10000))
	assert.Equal(t, enrollment.ErrNotFound, errors.Cause(err))
	assert.Empty(t, env.mail.SentMessages())

	_, err = env.svc.GetDetails(context.Background(), "missing")
	assert.Equal(t, enrollment.ErrNotFound, err)
}

func TestService_ApproveNotificationFailure(t *testing.T) {
	for _, from := range []enrollment.PaymentStatus{enrollment.StatusUnpaid, enrollment.StatusPartialPaid} {
		t.Run(string(from), func(t *testing.T) {
			env := newTestEnv(t, nil)
			f := testutil.SeedEnrollment(env.db, from, true, true)
			env.mail.FailWith(errSMTPDown)

			_, err := env.svc.UpdatePaymentStatus(context.Background(), f.Enrollment.ID, approve(enrollment.TypeFull, 10000))
			var notifErr *enrollment.NotificationError
			require.True(t, errors.As(err, &notifErr))
			assert.Equal(t, errSMTPDown, notifErr.Err)

			e := env.get(t, f.Enrollment.ID)
			assert.Equal(t, from, e.PaymentStatus)
			assert.Equal(t, f.Enrollment.AmountPaid, e.AmountPaid)
			assert.Equal(t, f.Enrollment.AmountRemaining, e.AmountRemaining)
			assert.Equal(t, student.StatusPending, e.Student.AccountStatus)
			assert.Empty(t, e.Student.LmsID)
			assert.Empty(t, e.Student.LmsPasswordHash)
			assert.True(t, env.db.PaymentExists(f.Partial.ID))
			assert.True(t, env.db.PaymentExists(f.Full.ID))
		})
	}
}

func TestService_Reject(t *testing.T) {
	tests := []struct {
		name          string
		from          enrollment.PaymentStatus
		partial, full bool
		update        enrollment.PaymentUpdate
		mailErr       error
		wantStatus    enrollment.PaymentStatus
		wantPaid      int64
		wantRemaining int64
		wantLevels    []string
	}{
		{
			name: "partial", from: enrollment.StatusPartialPaid, partial: true,
			update:     reject(enrollment.TypePartial, 1000, "amount mismatch"),
			wantStatus: enrollment.StatusUnpaid, wantRemaining: 10000, wantLevels: []string{"info"},
		},
		{
			name: "partial with failing email", from: enrollment.StatusUnpaid, partial: true,
			update: reject(enrollment.TypePartial, 1000, "amount mismatch"), mailErr: errSMTPDown,
			wantStatus: enrollment.StatusUnpaid, wantRemaining: 10000, wantLevels: []string{"warn", "info"},
		},
		{
			name: "full with prior partial", from: enrollment.StatusFullyPaid, partial: true, full: true,
			update:     reject(enrollment.TypeFull, 10000, "transaction id not found"),
			wantStatus: enrollment.StatusPartialPaid, wantPaid: 1000, wantRemaining: 9000, wantLevels: []string{"info"},
		},
		{
			name: "full without prior partial", from: enrollment.StatusFullyPaid, full: true,
			update:     reject(enrollment.TypeFull, 10000, ""),
			wantStatus: enrollment.StatusUnpaid, wantRemaining: 10000, wantLevels: []string{"info"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			f := testutil.SeedEnrollment(env.db, tt.from, tt.partial, tt.full)
			env.mail.FailWith(tt.mailErr)

			res, err := env.svc.UpdatePaymentStatus(context.Background(), f.Enrollment.ID, tt.update)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, res.PaymentStatus)
			assert.Equal(t, tt.update.RejectionReason, res.RejectionReason)

			e := env.get(t, f.Enrollment.ID)
			assert.Equal(t, tt.wantStatus, e.PaymentStatus)
			assert.Equal(t, tt.wantPaid, e.AmountPaid)
			assert.Equal(t, tt.wantRemaining, e.AmountRemaining)
			assert.Equal(t, student.StatusPending, e.Student.AccountStatus)

			if tt.update.PaymentType == enrollment.TypePartial {
				assert.Nil(t, e.PartialPaymentDetails)
				assert.False(t, env.db.PaymentExists(f.Partial.ID))
			} else {
				assert.Nil(t, e.FullPaymentDetails)
				assert.False(t, env.db.PaymentExists(f.Full.ID))
				assert.Equal(t, tt.partial, e.PartialPaymentDetails != nil)
			}
			assert.Equal(t, tt.wantLevels, env.logger.Levels())

			if tt.mailErr == nil {
				sent := env.mail.SentMessages()
				require.Len(t, sent, 1)
				assert.Equal(t, "Payment Rejected", sent[0].Subject)
				if tt.update.RejectionReason != "" {
					assert.Contains(t, sent[0].TextContent, tt.update.RejectionReason)
				}
			}
		})
	}
}

func TestService_SecondApprovalFails(t *testing.T) {
	env := newTestEnv(t, nil)
	f := testutil.SeedEnrollment(env.db, enrollment.StatusFullyPaid, true, true)

	_, err := env.svc.UpdatePaymentStatus(context.Background(), f.Enrollment.ID, approve(enrollment.TypeFull, 10000))
	assert.Equal(t, enrollment.ErrInvalidTransition, err)
	assert.Empty(t, env.mail.SentMessages())
}

func TestService_ConcurrentApprovals(t *testing.T) {
	env := newTestEnv(t, nil)
	f := testutil.SeedEnrollment(env.db, enrollment.StatusUnpaid, false, true)

	const n = 8
	var (
		wg   sync.WaitGroup
		errs = make([]error, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.svc.UpdatePaymentStatus(context.Background(), f.Enrollment.ID, approve(enrollment.TypeFull, 10000))
		}(i)
	}
	wg.Wait()

	var succeeded int
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.Equal(t, enrollment.ErrInvalidTransition, err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Len(t, env.mail.SentMessages(), 1)
	assert.Equal(t, enrollment.StatusFullyPaid, env.get(t, f.Enrollment.ID).PaymentStatus)
}

type lockerStub struct {
	err      error
	acquired []string
	released int
}

func (l *lockerStub) Acquire(_ context.Context, key string) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	l.acquired = append(l.acquired, key)
	return func() { l.released++ }, nil
}

func TestService_Locker(t *testing.T) {
	t.Run("held", func(t *testing.T) {
		locker := &lockerStub{err: enrollment.ErrLocked}
		env := newTestEnv(t, locker)
		f := testutil.SeedEnrollment(env.db, enrollment.StatusUnpaid, true, false)

		_, err := env.svc.UpdatePaymentStatus(context.Background(), f.Enrollment.ID, approve(enrollment.TypePartial, 1000))
		assert.Equal(t, enrollment.ErrLocked, err)
		assert.Empty(t, env.mail.SentMessages())
		assert.Equal(t, enrollment.StatusUnpaid, env.get(t, f.Enrollment.ID).PaymentStatus)
	})

	t.Run("free", func(t *testing.T) {
		locker := new(lockerStub)
		env := newTestEnv(t, locker)
		f := testutil.SeedEnrollment(env.db, enrollment.StatusUnpaid, true, false)

		_, err := env.svc.UpdatePaymentStatus(context.Background(), f.Enrollment.ID, approve(enrollment.TypePartial, 1000))
		require.NoError(t, err)
		assert.Equal(t, []string{"enrollment:payment:" + f.Enrollment.ID}, locker.acquired)
		assert.Equal(t, 1, locker.released)
	})
}

type failingStore struct {
	enrollment.Store
	saveErr error
}

type failingUnitOfWork struct {
	enrollment.UnitOfWork
	saveErr error
}

func (s failingStore) Begin(ctx context.Context) (enrollment.UnitOfWork, error) {
	uow, err := s.Store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return failingUnitOfWork{UnitOfWork: uow, saveErr: s.saveErr}, nil
}

func (uow failingUnitOfWork) SaveStudent(context.Context, student.Student) error {
	return uow.saveErr
}

func TestService_PersistenceFailure(t *testing.T) {
	env := newTestEnv(t, nil)
	f := testutil.SeedEnrollment(env.db, enrollment.StatusUnpaid, true, false)
	saveErr := errors.New("disk full")
	svc := enrollment.NewService(testutil.NewConfig(), failingStore{Store: env.store, saveErr: saveErr}, env.mail, env.logger, nil)

	_, err := svc.UpdatePaymentStatus(context.Background(), f.Enrollment.ID, approve(enrollment.TypePartial, 1000))
	assert.Equal(t, saveErr, errors.Cause(err))

	e := env.get(t, f.Enrollment.ID)
	assert.Equal(t, enrollment.StatusUnpaid, e.PaymentStatus)
	assert.Equal(t, student.StatusPending, e.Student.AccountStatus)
	assert.Empty(t, e.Student.LmsID)
}

func TestService_CredentialsFunc(t *testing.T) {
	env := newTestEnv(t, nil)
	f := testutil.SeedEnrollment(env.db, enrollment.StatusUnpaid, true, false)
	env.svc.SetCredentialsFunc(func(student.Student) (student.Credentials, error) {
		return student.Credentials{LmsID: "LMSFIXED01", Password: "Fixed#Pass12"}, nil
	})

	_, err := env.svc.UpdatePaymentStatus(context.Background(), f.Enrollment.ID, enrollment.PaymentUpdate{
		Action: enrollment.ActionApprove, PaymentType: enrollment.TypePartial, AmountPaid: 1000,
		ReviewedBy: core.Person{ID: "admin-1", Email: "admin@example.com"},
	})
	require.NoError(t, err)

	e := env.get(t, f.Enrollment.ID)
	assert.Equal(t, "LMSFIXED01", e.Student.LmsID)
	assert.NoError(t, e.Student.CheckLmsPassword("Fixed#Pass12"))
	assert.Contains(t, env.mail.SentMessages()[0].TextContent, "Fixed#Pass12")
	assert.Contains(t, env.logger.Entries[0].Args, core.Person{ID: "admin-1", Email: "admin@example.com"})
}
