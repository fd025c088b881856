package sqlxrepos

import (
	"database/sql"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/student"
)

const uniqueViolation = "23505"

var (
	studentColumns = []string{
		"id", "name", "middle_name", "last_name", "email", "phone_number", "college_name",
		"course_name", "year_of_study", "account_status", "lms_id", "lms_password_hash",
		"created_at", "updated_at", "last_login",
	}
	courseColumns  = []string{"id", "title", "slug", "price"}
	paymentColumns = []string{
		"id", "account_holder_name", "bank_name", "ifsc_code", "account_number",
		"transaction_id", "screenshot_url", "currency", "created_at",
	}
	enrollmentColumns = []string{
		"id", "student_id", "course_id", "payment_status", "amount_paid", "amount_remaining",
		"course_amount", "partial_payment_id", "full_payment_id", "created_at", "updated_at",
	}

	errLmsIDTaken = errors.New("lms id already taken")
)

type (
	studentRow struct {
		ID              string      `db:"id"`
		Name            string      `db:"name"`
		MiddleName      null.String `db:"middle_name"`
		LastName        null.String `db:"last_name"`
		Email           string      `db:"email"`
		PhoneNumber     null.String `db:"phone_number"`
		CollegeName     null.String `db:"college_name"`
		CourseName      null.String `db:"course_name"`
		YearOfStudy     null.String `db:"year_of_study"`
		AccountStatus   string      `db:"account_status"`
		LmsID           null.String `db:"lms_id"`
		LmsPasswordHash null.Bytes  `db:"lms_password_hash"`
		CreatedAt       time.Time   `db:"created_at"`
		UpdatedAt       time.Time   `db:"updated_at"`
		LastLogin       null.Time   `db:"last_login"`
	}

	courseRow struct {
		ID    string `db:"id"`
		Title string `db:"title"`
		Slug  string `db:"slug"`
		Price int64  `db:"price"`
	}

	// paymentRow is nullable as it comes from a LEFT JOIN.
	paymentRow struct {
		ID                null.String `db:"id"`
		AccountHolderName null.String `db:"account_holder_name"`
		BankName          null.String `db:"bank_name"`
		IFSCCode          null.String `db:"ifsc_code"`
		AccountNumber     null.String `db:"account_number"`
		TransactionID     null.String `db:"transaction_id"`
		ScreenshotURL     null.String `db:"screenshot_url"`
		Currency          null.String `db:"currency"`
		CreatedAt         null.Time   `db:"created_at"`
	}

	enrollmentRow struct {
		ID               string      `db:"id"`
		StudentID        string      `db:"student_id"`
		CourseID         string      `db:"course_id"`
		PaymentStatus    string      `db:"payment_status"`
		AmountPaid       int64       `db:"amount_paid"`
		AmountRemaining  int64       `db:"amount_remaining"`
		CourseAmount     null.Int64  `db:"course_amount"`
		PartialPaymentID null.String `db:"partial_payment_id"`
		FullPaymentID    null.String `db:"full_payment_id"`
		CreatedAt        time.Time   `db:"created_at"`
		UpdatedAt        time.Time   `db:"updated_at"`

		Course  courseRow  `db:"course"`
		Student studentRow `db:"student"`
		Partial paymentRow `db:"pp"`
		Full    paymentRow `db:"fp"`
	}
)

// selectColumns renders `alias.col AS "prefix.col"` for each column.
func selectColumns(alias, prefix string, cols []string) string {
	parts := make([]string, 0, len(cols))
	for _, col := range cols {
		if prefix == "" {
			parts = append(parts, alias+"."+col)
		} else {
			parts = append(parts, alias+"."+col+` AS "`+prefix+"."+col+`"`)
		}
	}
	return strings.Join(parts, ", ")
}

func nullString(s string) null.String {
	return null.NewString(s, s != "")
}

func (r studentRow) toStudent() student.Student {
	s := student.Student{
		ID:              r.ID,
		Name:            r.Name,
		MiddleName:      r.MiddleName.String,
		LastName:        r.LastName.String,
		Email:           r.Email,
		PhoneNumber:     r.PhoneNumber.String,
		CollegeName:     r.CollegeName.String,
		CourseName:      r.CourseName.String,
		YearOfStudy:     r.YearOfStudy.String,
		AccountStatus:   student.AccountStatus(r.AccountStatus),
		LmsID:           r.LmsID.String,
		LmsPasswordHash: r.LmsPasswordHash.Bytes,
		CreatedAt:       r.CreatedAt.UTC(),
		UpdatedAt:       r.UpdatedAt.UTC(),
	}
	if r.LastLogin.Valid {
		t := r.LastLogin.Time.UTC()
		s.LastLogin = &t
	}
	return s
}

func (r paymentRow) toPayment() *enrollment.Payment {
	if !r.ID.Valid {
		return nil
	}
	return &enrollment.Payment{
		ID:                r.ID.String,
		AccountHolderName: r.AccountHolderName.String,
		BankName:          r.BankName.String,
		IFSCCode:          r.IFSCCode.String,
		AccountNumber:     r.AccountNumber.String,
		TransactionID:     r.TransactionID.String,
		ScreenshotURL:     r.ScreenshotURL.String,
		Currency:          r.Currency.String,
		CreatedAt:         r.CreatedAt.Time.UTC(),
	}
}

func (r enrollmentRow) toEnrollment() enrollment.Enrollment {
	e := enrollment.Enrollment{
		ID:                    r.ID,
		StudentID:             r.StudentID,
		CourseID:              r.CourseID,
		PaymentStatus:         enrollment.PaymentStatus(r.PaymentStatus),
		AmountPaid:            r.AmountPaid,
		AmountRemaining:       r.AmountRemaining,
		CourseAmount:          r.CourseAmount.Ptr(),
		PartialPaymentID:      r.PartialPaymentID.String,
		FullPaymentID:         r.FullPaymentID.String,
		CreatedAt:             r.CreatedAt.UTC(),
		UpdatedAt:             r.UpdatedAt.UTC(),
		Course:                enrollment.Course(r.Course),
		Student:               r.Student.toStudent(),
		PartialPaymentDetails: r.Partial.toPayment(),
		FullPaymentDetails:    r.Full.toPayment(),
	}
	return e
}

// trapNoRowsErr maps sql.ErrNoRows to notFound.
func trapNoRowsErr(err, notFound error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return err
}

// isUniqueViolation understands both lib/pq and pgx errors.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	return false
}
