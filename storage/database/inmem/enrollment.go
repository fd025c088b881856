package inmemdb

import (
	"context"
	"errors"

	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/student"
)

type (
	enrollmentStore struct {
		db *DB
	}

	// unitOfWork holds the DB write lock until Commit or Rollback
	// and works on a private copy of the tables.
	unitOfWork struct {
		db      *DB
		staged  tables
		touched []string // saved student ids
		done    bool
	}
)

var (
	errUnitOfWorkDone = errors.New("unit of work already ended")
	errLmsIDTaken     = errors.New("lms id already taken")
)

func NewEnrollmentStore(db *DB) enrollment.Store {
	return &enrollmentStore{db: db}
}

func (store *enrollmentStore) Begin(ctx context.Context) (enrollment.UnitOfWork, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	store.db.mutex.Lock()
	return &unitOfWork{db: store.db, staged: store.db.tables.clone()}, nil
}

func (store *enrollmentStore) GetEnrollment(_ context.Context, id string) (enrollment.Enrollment, error) {
	store.db.mutex.RLock()
	defer store.db.mutex.RUnlock()

	e, ok := store.db.enrollments[id]
	if !ok {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	return store.db.populate(e), nil
}

func (uow *unitOfWork) FindEnrollment(_ context.Context, id string, _ bool) (enrollment.Enrollment, error) {
	if uow.done {
		return enrollment.Enrollment{}, errUnitOfWorkDone
	}
	e, ok := uow.staged.enrollments[id]
	if !ok {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	return uow.staged.populate(e), nil
}

func (uow *unitOfWork) DeletePayment(_ context.Context, id string) error {
	if uow.done {
		return errUnitOfWorkDone
	}
	delete(uow.staged.payments, id)
	return nil
}

func (uow *unitOfWork) SaveEnrollment(_ context.Context, e enrollment.Enrollment) error {
	if uow.done {
		return errUnitOfWorkDone
	}
	if _, ok := uow.staged.enrollments[e.ID]; !ok {
		return enrollment.ErrNotFound
	}
	uow.staged.enrollments[e.ID] = stripRelations(e)
	return nil
}

func (uow *unitOfWork) SaveStudent(_ context.Context, s student.Student) error {
	if uow.done {
		return errUnitOfWorkDone
	}
	orig, ok := uow.staged.students[s.ID]
	if !ok {
		return student.ErrNotFound
	}
	orig.AccountStatus = s.AccountStatus
	orig.LmsID = s.LmsID
	orig.LmsPasswordHash = s.LmsPasswordHash
	orig.UpdatedAt = s.UpdatedAt
	uow.staged.students[s.ID] = orig
	uow.touched = append(uow.touched, s.ID)
	return nil
}

func (uow *unitOfWork) Commit() error {
	if uow.done {
		return errUnitOfWorkDone
	}
	for _, id := range uow.touched {
		s := uow.staged.students[id]
		for otherID, other := range uow.staged.students {
			if s.LmsID != "" && otherID != id && other.LmsID == s.LmsID {
				uow.end()
				return errLmsIDTaken
			}
		}
	}
	uow.db.tables = uow.staged
	uow.end()
	return nil
}

func (uow *unitOfWork) Rollback() error {
	if !uow.done {
		uow.end()
	}
	return nil
}

func (uow *unitOfWork) end() {
	uow.done = true
	uow.db.mutex.Unlock()
}
