package student

import (
	"context"
	"errors"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
)

var (
	// errors
	ErrNotFound    = errors.New("student not found")
	ErrNoLmsAccess = errors.New("student has no LMS access yet")
)

type (
	Repository interface {
		// QueryStudents applies AND operation on available QueryFilter fields.
		// Name, email, college and course filters are case-insensitive substring matches.
		QueryStudents(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Student, int, error)
		GetStudent(ctx context.Context, filter GetFilter) (Student, error)
		UpdateStudent(ctx context.Context, s Student) (Student, error)
	}

	// LmsPassword is an admin-chosen replacement for a student's LMS password.
	LmsPassword struct {
		Password string `json:"password" validate:"required"`

		// student attributes the password must not resemble
		Name  string `json:"-"`
		Email string `json:"-"`
		LmsID string `json:"-"`
	}

	Service struct {
		repo       Repository
		validate   *validator.Validate
		translator ut.Translator
	}
)

var NowFunc = time.Now // mockable

func NewService(repo Repository, validate *validator.Validate, translator ut.Translator) *Service {
	return &Service{repo: repo, validate: validate, translator: translator}
}

// QueryPending lists the students whose account is still pending, newest first by default.
func (svc *Service) QueryPending(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, pagination core.Pagination) (Page, error) {
	filter.Clean()
	filter.AccountStatus = StatusPending
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at"}}
	}
	pagination = pagination.Normalize()

	students, total, err := svc.repo.QueryStudents(ctx, filter, ordering, pagination)
	if err != nil {
		return Page{}, err
	}

	now := NowFunc().UTC()
	items := make([]Summary, 0, len(students))
	for _, s := range students {
		items = append(items, NewSummary(s, now))
	}
	return NewPage(items, total, pagination), nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudent(ctx, GetFilter{ID: id})
}

// GetByLogin fetches a Student by email or LMS ID.
func (svc *Service) GetByLogin(ctx context.Context, login string) (Student, error) {
	return svc.repo.GetStudent(ctx, GetFilter{EmailOrLms: core.CleanString(login)})
}

// SetLmsPassword replaces the LMS password of an approved student.
func (svc *Service) SetLmsPassword(ctx context.Context, login, pwd string) (Student, error) {
	s, err := svc.GetByLogin(ctx, login)
	if err != nil {
		return Student{}, err
	}
	if s.LmsID == "" {
		return Student{}, ErrNoLmsAccess
	}

	lp := LmsPassword{Password: pwd, Name: s.FullName(), Email: s.Email, LmsID: s.LmsID}
	if err = svc.validate.Struct(lp); err != nil {
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) {
			fldErrs := core.TranslateErrors(vErrs, svc.translator)
			flds := make([]core.FieldError, 0, len(fldErrs))
			for fld, msg := range fldErrs {
				flds = append(flds, core.FieldError{Field: fld, Error: msg})
			}
			return Student{}, core.NewValidationError(nil, flds...)
		}
		return Student{}, err
	}

	if err = s.SetLmsPassword(pwd); err != nil {
		return Student{}, err
	}
	s.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateStudent(ctx, s)
}
