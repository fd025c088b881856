package sqlxrepos

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/student"
)

type studentRepository struct {
	exec core.DBExecutor
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(exec core.DBExecutor) *studentRepository {
	return &studentRepository{exec: exec}
}

// whereClause accumulates AND-ed conditions with numbered placeholders.
type whereClause struct {
	conds []string
	args  []interface{}
}

func (w *whereClause) add(cond string, arg interface{}) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, strings.ReplaceAll(cond, "?", "$"+strconv.Itoa(len(w.args))))
}

func (w *whereClause) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

func studentWhere(f student.QueryFilter) *whereClause {
	w := new(whereClause)
	if f.AccountStatus != "" {
		w.add("account_status = ?", string(f.AccountStatus))
	}
	if f.StudentName != "" {
		w.add("(name ILIKE ? OR middle_name ILIKE ? OR last_name ILIKE ?)", likePattern(f.StudentName))
	}
	if f.Email != "" {
		w.add("email ILIKE ?", likePattern(f.Email))
	}
	if f.CollegeName != "" {
		w.add("college_name ILIKE ?", likePattern(f.CollegeName))
	}
	if f.YearOfStudy != "" {
		w.add("year_of_study = ?", f.YearOfStudy)
	}
	if f.CourseName != "" {
		w.add("course_name ILIKE ?", likePattern(f.CourseName))
	}
	return w
}

func orderBy(ordering []core.DBOrdering) string {
	allowed := make(map[string]bool, len(student.SortFields))
	for _, col := range student.SortFields {
		allowed[col] = true
	}
	parts := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		if allowed[ord.Field] {
			parts = append(parts, ord.String())
		}
	}
	parts = append(parts, "id ASC")
	return " ORDER BY " + strings.Join(parts, ", ")
}

func (repo studentRepository) QueryStudents(ctx context.Context, filter student.QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]student.Student, int, error) {
	where := studentWhere(filter)

	var total int
	if err := sqlx.GetContext(ctx, repo.exec, &total, "SELECT COUNT(*) FROM students"+where.String(), where.args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting students")
	}

	args := append(where.args, page.Limit, page.Offset())
	q := "SELECT " + strings.Join(studentColumns, ", ") + " FROM students" + where.String() + orderBy(ordering) +
		" LIMIT $" + strconv.Itoa(len(args)-1) + " OFFSET $" + strconv.Itoa(len(args))

	var rows []studentRow
	if err := sqlx.SelectContext(ctx, repo.exec, &rows, q, args...); err != nil {
		return nil, 0, errors.Wrap(err, "querying students")
	}
	students := make([]student.Student, 0, len(rows))
	for _, r := range rows {
		students = append(students, r.toStudent())
	}
	return students, total, nil
}

func (repo studentRepository) GetStudent(ctx context.Context, filter student.GetFilter) (student.Student, error) {
	w := new(whereClause)
	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return student.Student{}, student.ErrNotFound
		}
		w.add("id = ?", filter.ID)
	case filter.Email != "":
		w.add("lower(email) = lower(?)", filter.Email)
	case filter.LmsID != "":
		w.add("lms_id = ?", filter.LmsID)
	case filter.EmailOrLms != "":
		w.add("(lower(email) = lower(?) OR lms_id = ?)", filter.EmailOrLms)
	default:
		return student.Student{}, student.ErrNotFound
	}

	var row studentRow
	q := "SELECT " + strings.Join(studentColumns, ", ") + " FROM students" + w.String()
	if err := sqlx.GetContext(ctx, repo.exec, &row, q, w.args...); err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound)
	}
	return row.toStudent(), nil
}

func (repo studentRepository) UpdateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	q := `UPDATE students
SET account_status = $1, lms_id = $2, lms_password_hash = COALESCE($3, lms_password_hash), updated_at = $4
WHERE id = $5
RETURNING ` + strings.Join(studentColumns, ", ")

	var row studentRow
	err := sqlx.GetContext(ctx, repo.exec, &row, q,
		string(s.AccountStatus), nullString(s.LmsID), s.LmsPasswordHash, s.UpdatedAt.UTC(), s.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return student.Student{}, errLmsIDTaken
		}
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound)
	}
	return row.toStudent(), nil
}
