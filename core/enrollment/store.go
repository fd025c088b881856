package enrollment

import (
	"context"

	"github.com/trezcool/academia/core/student"
)

type (
	// Store opens units of work over enrollments, payments and students.
	Store interface {
		Begin(ctx context.Context) (UnitOfWork, error)
		// GetEnrollment loads a populated Enrollment outside of any unit of work.
		GetEnrollment(ctx context.Context, id string) (Enrollment, error)
	}

	// UnitOfWork is one all-or-nothing transaction.
	// Rollback after Commit is a no-op.
	UnitOfWork interface {
		// FindEnrollment loads the Enrollment with its course, student and payments.
		// forUpdate locks it until the unit of work ends.
		FindEnrollment(ctx context.Context, id string, forUpdate bool) (Enrollment, error)
		DeletePayment(ctx context.Context, id string) error
		// SaveEnrollment writes the enrollment's own fields, relations are ignored.
		SaveEnrollment(ctx context.Context, e Enrollment) error
		// SaveStudent writes the account status and LMS credentials.
		SaveStudent(ctx context.Context, s student.Student) error
		Commit() error
		Rollback() error
	}

	// Locker serializes work on one key across processes.
	Locker interface {
		// Acquire returns ErrLocked when the key is held; release frees it.
		Acquire(ctx context.Context, key string) (release func(), err error)
	}
)
