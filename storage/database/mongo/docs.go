package mongorepos

import (
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/student"
)

var errLmsIDTaken = errors.New("lms id already taken")

type (
	studentDoc struct {
		ID              string     `bson:"_id"`
		Name            string     `bson:"name"`
		MiddleName      string     `bson:"middle_name,omitempty"`
		LastName        string     `bson:"last_name,omitempty"`
		Email           string     `bson:"email"`
		PhoneNumber     string     `bson:"phone_number,omitempty"`
		CollegeName     string     `bson:"college_name,omitempty"`
		CourseName      string     `bson:"course_name,omitempty"`
		YearOfStudy     string     `bson:"year_of_study,omitempty"`
		AccountStatus   string     `bson:"account_status"`
		LmsID           string     `bson:"lms_id,omitempty"`
		LmsPasswordHash []byte     `bson:"lms_password_hash,omitempty"`
		CreatedAt       time.Time  `bson:"created_at"`
		UpdatedAt       time.Time  `bson:"updated_at"`
		LastLogin       *time.Time `bson:"last_login,omitempty"`
	}

	courseDoc struct {
		ID    string `bson:"_id"`
		Title string `bson:"title"`
		Slug  string `bson:"slug"`
		Price int64  `bson:"price"`
	}

	paymentDoc struct {
		ID                string    `bson:"_id"`
		AccountHolderName string    `bson:"account_holder_name"`
		BankName          string    `bson:"bank_name"`
		IFSCCode          string    `bson:"ifsc_code,omitempty"`
		AccountNumber     string    `bson:"account_number,omitempty"`
		TransactionID     string    `bson:"transaction_id"`
		ScreenshotURL     string    `bson:"screenshot_url,omitempty"`
		Currency          string    `bson:"currency"`
		CreatedAt         time.Time `bson:"created_at"`
	}

	enrollmentDoc struct {
		ID               string    `bson:"_id"`
		StudentID        string    `bson:"student_id"`
		CourseID         string    `bson:"course_id"`
		PaymentStatus    string    `bson:"payment_status"`
		AmountPaid       int64     `bson:"amount_paid"`
		AmountRemaining  int64     `bson:"amount_remaining"`
		CourseAmount     *int64    `bson:"course_amount,omitempty"`
		PartialPaymentID string    `bson:"partial_payment_id,omitempty"`
		FullPaymentID    string    `bson:"full_payment_id,omitempty"`
		CreatedAt        time.Time `bson:"created_at"`
		UpdatedAt        time.Time `bson:"updated_at"`
		// bumped under a transaction to claim the document
		LockVersion int64 `bson:"lock_version"`
	}
)

func newStudentDoc(s student.Student) studentDoc {
	return studentDoc{
		ID:              s.ID,
		Name:            s.Name,
		MiddleName:      s.MiddleName,
		LastName:        s.LastName,
		Email:           s.Email,
		PhoneNumber:     s.PhoneNumber,
		CollegeName:     s.CollegeName,
		CourseName:      s.CourseName,
		YearOfStudy:     s.YearOfStudy,
		AccountStatus:   string(s.AccountStatus),
		LmsID:           s.LmsID,
		LmsPasswordHash: s.LmsPasswordHash,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
		LastLogin:       s.LastLogin,
	}
}

func (d studentDoc) toStudent() student.Student {
	return student.Student{
		ID:              d.ID,
		Name:            d.Name,
		MiddleName:      d.MiddleName,
		LastName:        d.LastName,
		Email:           d.Email,
		PhoneNumber:     d.PhoneNumber,
		CollegeName:     d.CollegeName,
		CourseName:      d.CourseName,
		YearOfStudy:     d.YearOfStudy,
		AccountStatus:   student.AccountStatus(d.AccountStatus),
		LmsID:           d.LmsID,
		LmsPasswordHash: d.LmsPasswordHash,
		CreatedAt:       d.CreatedAt.UTC(),
		UpdatedAt:       d.UpdatedAt.UTC(),
		LastLogin:       d.LastLogin,
	}
}

func (d paymentDoc) toPayment() *enrollment.Payment {
	p := enrollment.Payment(d)
	p.CreatedAt = p.CreatedAt.UTC()
	return &p
}

func (d enrollmentDoc) toEnrollment() enrollment.Enrollment {
	return enrollment.Enrollment{
		ID:               d.ID,
		StudentID:        d.StudentID,
		CourseID:         d.CourseID,
		PaymentStatus:    enrollment.PaymentStatus(d.PaymentStatus),
		AmountPaid:       d.AmountPaid,
		AmountRemaining:  d.AmountRemaining,
		CourseAmount:     d.CourseAmount,
		PartialPaymentID: d.PartialPaymentID,
		FullPaymentID:    d.FullPaymentID,
		CreatedAt:        d.CreatedAt.UTC(),
		UpdatedAt:        d.UpdatedAt.UTC(),
	}
}

func trapNoDocErr(err, notFoundErr error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return notFoundErr
	}
	return err
}
