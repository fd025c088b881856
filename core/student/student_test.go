package student

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
)

type repoStub struct {
	students map[string]Student
	filter   QueryFilter
	ordering []core.DBOrdering
	page     core.Pagination
}

func (r *repoStub) QueryStudents(_ context.Context, f QueryFilter, ord []core.DBOrdering, p core.Pagination) ([]Student, int, error) {
	r.filter, r.ordering, r.page = f, ord, p
	res := make([]Student, 0, len(r.students))
	for _, s := range r.students {
		res = append(res, s)
	}
	return res, len(res), nil
}

func (r *repoStub) GetStudent(_ context.Context, f GetFilter) (Student, error) {
	for _, s := range r.students {
		if s.ID == f.ID || (f.EmailOrLms != "" && (s.Email == f.EmailOrLms || s.LmsID == f.EmailOrLms)) {
			return s, nil
		}
	}
	return Student{}, ErrNotFound
}

func (r *repoStub) UpdateStudent(_ context.Context, s Student) (Student, error) {
	r.students[s.ID] = s
	return s, nil
}

func newTestService(students ...Student) (*Service, *repoStub) {
	repo := &repoStub{students: make(map[string]Student)}
	for _, s := range students {
		repo.students[s.ID] = s
	}
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)
	return NewService(repo, validate, translator), repo
}

func TestStudent_FullName(t *testing.T) {
	tests := []struct {
		name string
		s    Student
		want string
	}{
		{name: "first only", s: Student{Name: "Priya"}, want: "Priya"},
		{name: "first and last", s: Student{Name: "Priya", LastName: "Sharma"}, want: "Priya Sharma"},
		{name: "all parts", s: Student{Name: "Priya", MiddleName: " K ", LastName: "Sharma"}, want: "Priya K Sharma"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.s.FullName())
		})
	}
}

func TestStudent_DaysSinceRegistration(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, Student{}.DaysSinceRegistration(now))
	assert.Equal(t, 0, Student{CreatedAt: now.Add(time.Hour)}.DaysSinceRegistration(now))
	assert.Equal(t, 2, Student{CreatedAt: now.Add(-50 * time.Hour)}.DaysSinceRegistration(now))
}

func TestStudent_LmsPassword(t *testing.T) {
	var s Student
	require.NoError(t, s.SetLmsPassword("Str0ng#Horse"))
	assert.NotEqual(t, "Str0ng#Horse", string(s.LmsPasswordHash))
	assert.NoError(t, s.CheckLmsPassword("Str0ng#Horse"))
	assert.Error(t, s.CheckLmsPassword("str0ng#horse"))
	assert.False(t, s.HasLmsAccess())
	s.LmsID = "LMSABCDEFGH"
	assert.True(t, s.HasLmsAccess())
}

func TestQueryFilter_Clean(t *testing.T) {
	qf := QueryFilter{StudentName: " priya ", Email: "All", CollegeName: "all", YearOfStudy: "3", CourseName: " Go "}
	qf.Clean()
	assert.Equal(t, QueryFilter{StudentName: "priya", YearOfStudy: "3", CourseName: "Go"}, qf)
}

func TestNewPage(t *testing.T) {
	tests := []struct {
		name                     string
		total                    int
		page                     core.Pagination
		wantPages, wantSerial    int
		wantNext, wantPrev       bool
		wantNextNum, wantPrevNum *int
	}{
		{name: "empty", total: 0, page: core.Pagination{Page: 1, Limit: 10}, wantPages: 1, wantSerial: 1},
		{name: "first of three", total: 25, page: core.Pagination{Page: 1, Limit: 10}, wantPages: 3, wantSerial: 1, wantNext: true, wantNextNum: intPtr(2)},
		{name: "middle", total: 25, page: core.Pagination{Page: 2, Limit: 10}, wantPages: 3, wantSerial: 11, wantNext: true, wantPrev: true, wantNextNum: intPtr(3), wantPrevNum: intPtr(1)},
		{name: "last", total: 25, page: core.Pagination{Page: 3, Limit: 10}, wantPages: 3, wantSerial: 21, wantPrev: true, wantPrevNum: intPtr(2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPage(nil, tt.total, tt.page)
			assert.NotNil(t, p.PendingUsers)
			assert.Equal(t, tt.total, p.TotalPending)
			assert.Equal(t, tt.page.Limit, p.PageSize)
			assert.Equal(t, tt.page.Page, p.CurrentPage)
			assert.Equal(t, tt.wantPages, p.TotalPages)
			assert.Equal(t, tt.wantSerial, p.SerialNo)
			assert.Equal(t, tt.wantNext, p.HasNext)
			assert.Equal(t, tt.wantPrev, p.HasPrev)
			assert.Equal(t, tt.wantNextNum, p.Next)
			assert.Equal(t, tt.wantPrevNum, p.Prev)
		})
	}
}

func intPtr(i int) *int { return &i }

func TestGenerateCredentials(t *testing.T) {
	creds, err := GenerateCredentials(Student{})
	require.NoError(t, err)
	assert.Regexp(t, `^LMS[A-Z2-7]{8}$`, creds.LmsID)
	assert.Len(t, creds.Password, lmsPasswordLen)
	assert.Regexp(t, `[A-Z]`, creds.Password)
	assert.Regexp(t, `[a-z]`, creds.Password)
	assert.Regexp(t, `[0-9]`, creds.Password)
	assert.Regexp(t, `[^A-Za-z0-9]`, creds.Password)

	again, err := GenerateCredentials(Student{LmsID: creds.LmsID})
	require.NoError(t, err)
	assert.Equal(t, creds.LmsID, again.LmsID, "existing lms id is kept")
	assert.NotEqual(t, creds.Password, again.Password)
}

func TestService_QueryPending(t *testing.T) {
	now := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	NowFunc = func() time.Time { return now }
	defer func() { NowFunc = time.Now }()

	svc, repo := newTestService(Student{
		ID: "s1", Name: "Priya", LastName: "Sharma", Email: "priya@example.com",
		AccountStatus: StatusPending, CreatedAt: now.Add(-72 * time.Hour),
	})

	page, err := svc.QueryPending(context.Background(), QueryFilter{CollegeName: "All", StudentName: " pri"}, nil, core.Pagination{})
	require.NoError(t, err)

	assert.Equal(t, StatusPending, repo.filter.AccountStatus)
	assert.Equal(t, "pri", repo.filter.StudentName)
	assert.Empty(t, repo.filter.CollegeName)
	assert.Equal(t, []core.DBOrdering{{Field: "created_at"}}, repo.ordering)
	assert.Equal(t, core.Pagination{Page: 1, Limit: 10}, repo.page)

	require.Len(t, page.PendingUsers, 1)
	assert.Equal(t, "Priya Sharma", page.PendingUsers[0].FullName)
	assert.Equal(t, 3, page.PendingUsers[0].DaysSinceRegistration)
}

func TestService_QueryPending_HugePage(t *testing.T) {
	svc, repo := newTestService(Student{ID: "s1", Email: "priya@example.com", AccountStatus: StatusPending})

	page, err := svc.QueryPending(context.Background(), QueryFilter{}, nil, core.Pagination{Page: math.MaxInt64/10 + 2, Limit: 10})
	require.NoError(t, err)

	assert.Equal(t, core.MaxPage, repo.page.Page)
	assert.Equal(t, core.MaxPage, page.CurrentPage)
	assert.Positive(t, page.SerialNo)
}

func TestService_SetLmsPassword(t *testing.T) {
	approved := Student{
		ID: "s1", Name: "Priya", LastName: "Sharma", Email: "priya@example.com",
		AccountStatus: StatusVerified, LmsID: "LMSABCDEFGH",
	}
	pending := Student{ID: "s2", Name: "Ravi", Email: "ravi@example.com", AccountStatus: StatusPending}

	tests := []struct {
		name    string
		login   string
		pwd     string
		wantErr error
		wantMsg string
	}{
		{name: "unknown student", login: "nobody@example.com", pwd: "Str0ng#Horse", wantErr: ErrNotFound},
		{name: "no lms access", login: "ravi@example.com", pwd: "Str0ng#Horse", wantErr: ErrNoLmsAccess},
		{name: "required", login: "LMSABCDEFGH", wantMsg: "this field is required"},
		{name: "too short", login: "LMSABCDEFGH", pwd: "Ab1!", wantMsg: pwdMinLenText},
		{name: "whitespace", login: "LMSABCDEFGH", pwd: "Str0ng Horse!", wantMsg: pwdNoSpaceText},
		{name: "all numeric", login: "LMSABCDEFGH", pwd: "1234567890", wantMsg: pwdNotAllNumText},
		{name: "not complex", login: "LMSABCDEFGH", pwd: "abcdefghij", wantMsg: pwdComplexityText},
		{name: "similar to name", login: "LMSABCDEFGH", pwd: "PriyaSharma1!", wantMsg: pwdAttrSimText},
		{name: "common", login: "LMSABCDEFGH", pwd: "P@ssw0rd", wantMsg: pwdNoCommonText},
		{name: "ok", login: " priya@example.com ", pwd: "Str0ng#Horse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newTestService(approved, pending)

			s, err := svc.SetLmsPassword(context.Background(), tt.login, tt.pwd)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantMsg != "":
				var vErr *core.ValidationError
				require.ErrorAs(t, err, &vErr)
				require.Len(t, vErr.Fields, 1)
				assert.Equal(t, "password", vErr.Fields[0].Field)
				assert.Equal(t, tt.wantMsg, vErr.Fields[0].Error)
				assert.Empty(t, repo.students["s1"].LmsPasswordHash)
			default:
				require.NoError(t, err)
				assert.NoError(t, s.CheckLmsPassword(tt.pwd))
				assert.Equal(t, s.LmsPasswordHash, repo.students["s1"].LmsPasswordHash)
			}
		})
	}
}
