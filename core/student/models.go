package student

import (
	"math"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/academia/core"
)

type AccountStatus string

const (
	StatusPending  AccountStatus = "pending"
	StatusVerified AccountStatus = "verified"
	StatusBlocked  AccountStatus = "blocked"
)

// SortFields maps the API sort keys to storage columns.
var SortFields = map[string]string{
	"name":        "name",
	"email":       "email",
	"collegeName": "college_name",
	"yearOfStudy": "year_of_study",
	"createdAt":   "created_at",
	"updatedAt":   "updated_at",
	"lastLogin":   "last_login",
}

type Student struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	MiddleName      string        `json:"middleName,omitempty"`
	LastName        string        `json:"lastName,omitempty"`
	Email           string        `json:"email"`
	PhoneNumber     string        `json:"phoneNumber,omitempty"`
	CollegeName     string        `json:"collegeName,omitempty"`
	CourseName      string        `json:"courseName,omitempty"`
	YearOfStudy     string        `json:"yearOfStudy,omitempty"`
	AccountStatus   AccountStatus `json:"accountStatus"`
	LmsID           string        `json:"lmsId,omitempty"`
	LmsPasswordHash []byte        `json:"-"`
	CreatedAt       time.Time     `json:"createdAt"` // UTC
	UpdatedAt       time.Time     `json:"updatedAt"` // UTC
	LastLogin       *time.Time    `json:"lastLogin,omitempty"`
}

func (s Student) FullName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{s.Name, s.MiddleName, s.LastName} {
		if p = core.CleanString(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// DaysSinceRegistration counts whole days elapsed since CreatedAt.
func (s Student) DaysSinceRegistration(now time.Time) int {
	if s.CreatedAt.IsZero() || now.Before(s.CreatedAt) {
		return 0
	}
	return int(math.Floor(now.Sub(s.CreatedAt).Hours() / 24))
}

func (s *Student) SetLmsPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	s.LmsPasswordHash = hash
	return nil
}

func (s *Student) CheckLmsPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(s.LmsPasswordHash, []byte(pwd))
}

func (s Student) HasLmsAccess() bool {
	return s.LmsID != "" && len(s.LmsPasswordHash) > 0
}

// Summary is the list representation of a Student.
type Summary struct {
	Student
	FullName              string `json:"fullName"`
	DaysSinceRegistration int    `json:"daysSinceRegistration"`
}

func NewSummary(s Student, now time.Time) Summary {
	return Summary{
		Student:               s,
		FullName:              s.FullName(),
		DaysSinceRegistration: s.DaysSinceRegistration(now),
	}
}

type QueryFilter struct {
	StudentName   string        `query:"studentName"`
	Email         string        `query:"email"`
	CollegeName   string        `query:"collegeName"`
	YearOfStudy   string        `query:"yearOfStudy"`
	CourseName    string        `query:"courseName"`
	AccountStatus AccountStatus `query:"-"`
}

// Clean trims every field; "All" means no filter.
func (qf *QueryFilter) Clean() {
	clean := func(s string) string {
		s = core.CleanString(s)
		if strings.EqualFold(s, "all") {
			return ""
		}
		return s
	}
	qf.StudentName = clean(qf.StudentName)
	qf.Email = clean(qf.Email)
	qf.CollegeName = clean(qf.CollegeName)
	qf.YearOfStudy = clean(qf.YearOfStudy)
	qf.CourseName = clean(qf.CourseName)
}

// GetFilter selects one Student; the first non-empty field wins.
type GetFilter struct {
	ID         string
	Email      string
	LmsID      string
	EmailOrLms string
}

// Page is a paginated list of pending students.
type Page struct {
	PendingUsers []Summary `json:"pendingUsers"`
	TotalPending int       `json:"totalPending"`
	PageSize     int       `json:"pageSize"`
	CurrentPage  int       `json:"currentPage"`
	TotalPages   int       `json:"totalPages"`
	HasNext      bool      `json:"hasNext"`
	HasPrev      bool      `json:"hasPrev"`
	Next         *int      `json:"next"`
	Prev         *int      `json:"prev"`
	SerialNo     int       `json:"serialNo"`
}

func NewPage(items []Summary, total int, p core.Pagination) Page {
	if items == nil {
		items = []Summary{}
	}
	totalPages := int(math.Ceil(float64(total) / float64(p.Limit)))
	if totalPages == 0 {
		totalPages = 1
	}
	page := Page{
		PendingUsers: items,
		TotalPending: total,
		PageSize:     p.Limit,
		CurrentPage:  p.Page,
		TotalPages:   totalPages,
		HasPrev:      p.Page > 1,
		HasNext:      p.Page < totalPages,
		SerialNo:     p.Offset() + 1,
	}
	if page.HasPrev {
		prev := p.Page - 1
		page.Prev = &prev
	}
	if page.HasNext {
		next := p.Page + 1
		page.Next = &next
	}
	return page
}
