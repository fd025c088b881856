package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/student"
)

type studentRepository struct {
	db *DB
}

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) query() []student.Student {
	students := make([]student.Student, 0, len(repo.db.students))
	for _, s := range repo.db.students {
		students = append(students, s)
	}
	return students
}

func (repo *studentRepository) QueryStudents(_ context.Context, filter student.QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]student.Student, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	matches := make([]student.Student, 0)
	for _, s := range repo.query() {
		if matchStudent(s, filter) {
			matches = append(matches, s)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		for _, ord := range ordering {
			if c := compareStudents(matches[i], matches[j], ord.Field); c != 0 {
				return (c < 0) == ord.Ascending
			}
		}
		return matches[i].ID < matches[j].ID
	})

	total := len(matches)
	start := page.Offset()
	if start > total {
		start = total
	}
	end := start + page.Limit
	if end > total {
		end = total
	}
	return matches[start:end], total, nil
}

func (repo *studentRepository) GetStudent(_ context.Context, filter student.GetFilter) (student.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, s := range repo.query() {
		switch {
		case filter.ID != "":
			if s.ID == filter.ID {
				return s, nil
			}
		case filter.Email != "":
			if strings.EqualFold(s.Email, filter.Email) {
				return s, nil
			}
		case filter.LmsID != "":
			if s.LmsID == filter.LmsID {
				return s, nil
			}
		case filter.EmailOrLms != "":
			if strings.EqualFold(s.Email, filter.EmailOrLms) || s.LmsID == filter.EmailOrLms {
				return s, nil
			}
		}
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) UpdateStudent(_ context.Context, s student.Student) (student.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.students[s.ID]
	if !ok {
		return student.Student{}, student.ErrNotFound
	}
	orig.AccountStatus = s.AccountStatus
	orig.LmsID = s.LmsID
	if s.LmsPasswordHash != nil {
		orig.LmsPasswordHash = s.LmsPasswordHash
	}
	orig.UpdatedAt = s.UpdatedAt
	repo.db.students[s.ID] = orig
	return orig, nil
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func matchStudent(s student.Student, f student.QueryFilter) bool {
	if f.AccountStatus != "" && s.AccountStatus != f.AccountStatus {
		return false
	}
	if f.StudentName != "" && !(containsFold(s.Name, f.StudentName) ||
		containsFold(s.MiddleName, f.StudentName) ||
		containsFold(s.LastName, f.StudentName)) {
		return false
	}
	if f.Email != "" && !containsFold(s.Email, f.Email) {
		return false
	}
	if f.CollegeName != "" && !containsFold(s.CollegeName, f.CollegeName) {
		return false
	}
	if f.YearOfStudy != "" && s.YearOfStudy != f.YearOfStudy {
		return false
	}
	if f.CourseName != "" && !containsFold(s.CourseName, f.CourseName) {
		return false
	}
	return true
}

func compareTimes(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

// compareStudents compares a and b on a storage column name.
func compareStudents(a, b student.Student, column string) int {
	switch column {
	case "name":
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	case "email":
		return strings.Compare(a.Email, b.Email)
	case "college_name":
		return strings.Compare(strings.ToLower(a.CollegeName), strings.ToLower(b.CollegeName))
	case "year_of_study":
		return strings.Compare(a.YearOfStudy, b.YearOfStudy)
	case "created_at":
		return compareTimes(a.CreatedAt, b.CreatedAt)
	case "updated_at":
		return compareTimes(a.UpdatedAt, b.UpdatedAt)
	case "last_login":
		var at, bt time.Time
		if a.LastLogin != nil {
			at = *a.LastLogin
		}
		if b.LastLogin != nil {
			bt = *b.LastLogin
		}
		return compareTimes(at, bt)
	}
	return 0
}
