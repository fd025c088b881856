package inmemdb

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/student"
)

type (
	// DB keeps every record in memory. Relations are stored by id only.
	DB struct {
		mutex sync.RWMutex
		tables
	}

	tables struct {
		courses     map[string]enrollment.Course
		students    map[string]student.Student
		payments    map[string]enrollment.Payment
		enrollments map[string]enrollment.Enrollment
	}
)

func Open() *DB {
	return &DB{tables: newTables()}
}

func newTables() tables {
	return tables{
		courses:     make(map[string]enrollment.Course),
		students:    make(map[string]student.Student),
		payments:    make(map[string]enrollment.Payment),
		enrollments: make(map[string]enrollment.Enrollment),
	}
}

// clone copies the mutable tables; courses are never written by a unit of work.
func (t tables) clone() tables {
	c := tables{
		courses:     t.courses,
		students:    make(map[string]student.Student, len(t.students)),
		payments:    make(map[string]enrollment.Payment, len(t.payments)),
		enrollments: make(map[string]enrollment.Enrollment, len(t.enrollments)),
	}
	for k, v := range t.students {
		c.students[k] = v
	}
	for k, v := range t.payments {
		c.payments[k] = v
	}
	for k, v := range t.enrollments {
		c.enrollments[k] = v
	}
	return c
}

func newID(id string) string {
	if id == "" {
		return uuid.New().String()
	}
	return id
}

func (db *DB) InsertCourse(c enrollment.Course) enrollment.Course {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	c.ID = newID(c.ID)
	db.courses[c.ID] = c
	return c
}

func (db *DB) InsertStudent(s student.Student) student.Student {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	s.ID = newID(s.ID)
	if s.AccountStatus == "" {
		s.AccountStatus = student.StatusPending
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
		s.UpdatedAt = s.CreatedAt
	}
	db.students[s.ID] = s
	return s
}

func (db *DB) InsertPayment(p enrollment.Payment) enrollment.Payment {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	p.ID = newID(p.ID)
	if p.Currency == "" {
		p.Currency = "INR"
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	db.payments[p.ID] = p
	return p
}

// InsertEnrollment stores e without its populated relations.
func (db *DB) InsertEnrollment(e enrollment.Enrollment) enrollment.Enrollment {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	e.ID = newID(e.ID)
	if e.PaymentStatus == "" {
		e.PaymentStatus = enrollment.StatusUnpaid
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
		e.UpdatedAt = e.CreatedAt
	}
	e = stripRelations(e)
	db.enrollments[e.ID] = e
	return e
}

func (db *DB) PaymentExists(id string) bool {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	_, ok := db.payments[id]
	return ok
}

func stripRelations(e enrollment.Enrollment) enrollment.Enrollment {
	e.Course = enrollment.Course{}
	e.Student = student.Student{}
	e.PartialPaymentDetails = nil
	e.FullPaymentDetails = nil
	return e
}

// populate resolves the relations of e from t.
func (t tables) populate(e enrollment.Enrollment) enrollment.Enrollment {
	e.Course = t.courses[e.CourseID]
	e.Student = t.students[e.StudentID]
	if p, ok := t.payments[e.PartialPaymentID]; ok && e.PartialPaymentID != "" {
		e.PartialPaymentDetails = &p
	} else {
		e.PartialPaymentID = ""
	}
	if p, ok := t.payments[e.FullPaymentID]; ok && e.FullPaymentID != "" {
		e.FullPaymentDetails = &p
	} else {
		e.FullPaymentID = ""
	}
	return e
}
