package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/student"
)

var findEnrollmentQuery = "SELECT " +
	selectColumns("e", "", enrollmentColumns) + ", " +
	selectColumns("c", "course", courseColumns) + ", " +
	selectColumns("s", "student", studentColumns) + ", " +
	selectColumns("pp", "pp", paymentColumns) + ", " +
	selectColumns("fp", "fp", paymentColumns) + `
FROM enrollments e
JOIN courses c ON c.id = e.course_id
JOIN students s ON s.id = e.student_id
LEFT JOIN payments pp ON pp.id = e.partial_payment_id
LEFT JOIN payments fp ON fp.id = e.full_payment_id
WHERE e.id = $1`

type (
	enrollmentStore struct {
		db core.DB
	}

	unitOfWork struct {
		tx *sqlx.Tx
	}
)

var (
	_ enrollment.Store      = (*enrollmentStore)(nil) // interface compliance check
	_ enrollment.UnitOfWork = (*unitOfWork)(nil)
)

func NewEnrollmentStore(db core.DB) *enrollmentStore {
	return &enrollmentStore{db: db}
}

func findEnrollment(ctx context.Context, exec core.DBExecutor, id string, forUpdate bool) (enrollment.Enrollment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	q := findEnrollmentQuery
	if forUpdate {
		// payments sit on the nullable side of the joins and are reached through the enrollment row
		q += "\nFOR UPDATE OF e, s"
	}
	var row enrollmentRow
	if err := sqlx.GetContext(ctx, exec, &row, q, id); err != nil {
		return enrollment.Enrollment{}, trapNoRowsErr(err, enrollment.ErrNotFound)
	}
	return row.toEnrollment(), nil
}

func (store *enrollmentStore) Begin(ctx context.Context) (enrollment.UnitOfWork, error) {
	tx, err := store.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	return &unitOfWork{tx: tx}, nil
}

func (store *enrollmentStore) GetEnrollment(ctx context.Context, id string) (enrollment.Enrollment, error) {
	return findEnrollment(ctx, store.db, id, false)
}

func (uow *unitOfWork) FindEnrollment(ctx context.Context, id string, forUpdate bool) (enrollment.Enrollment, error) {
	return findEnrollment(ctx, uow.tx, id, forUpdate)
}

func (uow *unitOfWork) DeletePayment(ctx context.Context, id string) error {
	_, err := uow.tx.ExecContext(ctx, "DELETE FROM payments WHERE id = $1", id)
	return errors.Wrap(err, "deleting payment")
}

func (uow *unitOfWork) SaveEnrollment(ctx context.Context, e enrollment.Enrollment) error {
	const q = `UPDATE enrollments
SET payment_status = $1, amount_paid = $2, amount_remaining = $3,
	partial_payment_id = $4, full_payment_id = $5, updated_at = $6
WHERE id = $7`
	res, err := uow.tx.ExecContext(ctx, q,
		string(e.PaymentStatus), e.AmountPaid, e.AmountRemaining,
		nullString(e.PartialPaymentID), nullString(e.FullPaymentID), e.UpdatedAt.UTC(), e.ID)
	if err != nil {
		return errors.Wrap(err, "updating enrollment")
	}
	return checkAffected(res, enrollment.ErrNotFound)
}

func (uow *unitOfWork) SaveStudent(ctx context.Context, s student.Student) error {
	const q = `UPDATE students
SET account_status = $1, lms_id = $2, lms_password_hash = $3, updated_at = $4
WHERE id = $5`
	res, err := uow.tx.ExecContext(ctx, q,
		string(s.AccountStatus), nullString(s.LmsID), s.LmsPasswordHash, s.UpdatedAt.UTC(), s.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return errLmsIDTaken
		}
		return errors.Wrap(err, "updating student")
	}
	return checkAffected(res, student.ErrNotFound)
}

func (uow *unitOfWork) Commit() error {
	return uow.tx.Commit()
}

func (uow *unitOfWork) Rollback() error {
	if err := uow.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

func checkAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
