package enrollment

import (
	"time"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/student"
)

type (
	PaymentStatus string
	Action        string
	PaymentType   string
)

const (
	StatusUnpaid      PaymentStatus = "UNPAID"
	StatusPartialPaid PaymentStatus = "PARTIAL_PAID"
	StatusFullyPaid   PaymentStatus = "FULLY_PAID"

	ActionApprove Action = "approve"
	ActionReject  Action = "reject"

	TypePartial PaymentType = "partial"
	TypeFull    PaymentType = "full"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case StatusUnpaid, StatusPartialPaid, StatusFullyPaid:
		return true
	}
	return false
}

type Course struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Slug  string `json:"slug"`
	Price int64  `json:"price"`
}

// Payment is the evidence of a bank transfer, owned by one Enrollment.
type Payment struct {
	ID                string    `json:"id"`
	AccountHolderName string    `json:"accountHolderName"`
	BankName          string    `json:"bankName"`
	IFSCCode          string    `json:"ifscCode"`
	AccountNumber     string    `json:"accountNumber"`
	TransactionID     string    `json:"transactionId"`
	ScreenshotURL     string    `json:"screenshotUrl,omitempty"`
	Currency          string    `json:"currency"`
	CreatedAt         time.Time `json:"createdAt"`
}

type Enrollment struct {
	ID               string        `json:"id"`
	StudentID        string        `json:"studentId"`
	CourseID         string        `json:"courseId"`
	PaymentStatus    PaymentStatus `json:"paymentStatus"`
	AmountPaid       int64         `json:"amountPaid"`
	AmountRemaining  int64         `json:"amountRemaining"`
	CourseAmount     *int64        `json:"courseAmount"` // price snapshot taken at checkout
	PartialPaymentID string        `json:"-"`
	FullPaymentID    string        `json:"-"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`

	// populated relations
	Course                Course          `json:"course"`
	Student               student.Student `json:"student"`
	PartialPaymentDetails *Payment        `json:"partialPaymentDetails"`
	FullPaymentDetails    *Payment        `json:"fullPaymentDetails"`
}

// PaymentUpdate is an admin decision on a submitted payment.
type PaymentUpdate struct {
	Action          Action
	PaymentType     PaymentType
	AmountPaid      int64
	RejectionReason string

	ReviewedBy core.Person
}

type PaymentUpdateResult struct {
	EnrollmentID    string        `json:"enrollmentId"`
	PaymentStatus   PaymentStatus `json:"paymentStatus"`
	AmountPaid      int64         `json:"amountPaid"`
	AmountRemaining int64         `json:"amountRemaining"`
	RejectionReason string        `json:"rejectionReason,omitempty"`
}
