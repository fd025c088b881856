// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"fmt"
	"sync"
	"time"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/student"
	inmemdb "github.com/trezcool/academia/storage/database/inmem"
)

// NewConfig returns the TEST profile backed by the in-memory store.
func NewConfig() *core.Config {
	conf, err := core.LoadConfig("TEST", core.Getwd())
	if err != nil {
		panic(err)
	}
	conf.Store = core.StoreMemory
	conf.EmailBackend = core.EmailConsole
	conf.LMSLoginURL = "https://lms.example.com/login"
	conf.Redis = ""
	return conf
}

type LogEntry struct {
	Level string
	Msg   string
	Args  []interface{}
}

// LoggerMock records log calls.
type LoggerMock struct {
	mu      sync.Mutex
	Entries []LogEntry
}

var _ core.Logger = (*LoggerMock)(nil)

func (l *LoggerMock) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Entries = append(l.Entries, LogEntry{Level: level, Msg: msg, Args: args})
}

func (l *LoggerMock) Debug(msg string, args ...interface{}) { l.log("debug", msg, args) }
func (l *LoggerMock) Info(msg string, args ...interface{})  { l.log("info", msg, args) }
func (l *LoggerMock) Warn(msg string, args ...interface{})  { l.log("warn", msg, args) }
func (l *LoggerMock) Error(msg string, args ...interface{}) { l.log("error", msg, args) }
func (l *LoggerMock) Fatal(msg string, args ...interface{}) { l.log("fatal", msg, args) }

// Levels returns the recorded levels in call order.
func (l *LoggerMock) Levels() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	levels := make([]string, 0, len(l.Entries))
	for _, e := range l.Entries {
		levels = append(levels, e.Level)
	}
	return levels
}

// Fixture is a seeded enrollment with its related records.
type Fixture struct {
	Course     enrollment.Course
	Student    student.Student
	Partial    *enrollment.Payment
	Full       *enrollment.Payment
	Enrollment enrollment.Enrollment
}

var seq int
var seqMu sync.Mutex

func nextSeq() int {
	seqMu.Lock()
	defer seqMu.Unlock()
	seq++
	return seq
}

// SeedEnrollment inserts a course priced 12000, an enrollment snapshotting 10000
// and the payment records implied by status, partial and full.
func SeedEnrollment(db *inmemdb.DB, status enrollment.PaymentStatus, partial, full bool) Fixture {
	n := nextSeq()
	now := time.Now().UTC()

	var f Fixture
	f.Course = db.InsertCourse(enrollment.Course{
		Title: fmt.Sprintf("Go Backend %d", n),
		Slug:  fmt.Sprintf("go-backend-%d", n),
		Price: 12000,
	})
	f.Student = db.InsertStudent(student.Student{
		Name:          "Priya",
		LastName:      "Sharma",
		Email:         fmt.Sprintf("priya%d@example.com", n),
		CollegeName:   "IIT Delhi",
		CourseName:    f.Course.Title,
		YearOfStudy:   "3",
		AccountStatus: student.StatusPending,
		CreatedAt:     now.Add(-48 * time.Hour),
		UpdatedAt:     now.Add(-48 * time.Hour),
	})

	courseAmount := int64(10000)
	e := enrollment.Enrollment{
		StudentID:       f.Student.ID,
		CourseID:        f.Course.ID,
		PaymentStatus:   status,
		AmountRemaining: courseAmount,
		CourseAmount:    &courseAmount,
	}
	switch status {
	case enrollment.StatusPartialPaid:
		e.AmountPaid, e.AmountRemaining = 1000, 9000
	case enrollment.StatusFullyPaid:
		e.AmountPaid, e.AmountRemaining = 10000, 0
	}
	if partial {
		p := db.InsertPayment(enrollment.Payment{
			AccountHolderName: "Priya Sharma",
			BankName:          "HDFC",
			IFSCCode:          "HDFC0001234",
			AccountNumber:     "123456789012",
			TransactionID:     fmt.Sprintf("TXN-P-%d", n),
		})
		f.Partial = &p
		e.PartialPaymentID = p.ID
	}
	if full {
		p := db.InsertPayment(enrollment.Payment{
			AccountHolderName: "Priya Sharma",
			BankName:          "HDFC",
			IFSCCode:          "HDFC0001234",
			AccountNumber:     "123456789012",
			TransactionID:     fmt.Sprintf("TXN-F-%d", n),
		})
		f.Full = &p
		e.FullPaymentID = p.ID
	}
	f.Enrollment = db.InsertEnrollment(e)
	return f
}
