package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/student"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind reads `?ordering=-createdAt,name`; unknown fields are dropped.
func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if col, ok := student.SortFields[field]; ok {
			ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: col, Ascending: !descending})
		}
	}
}

// PendingStudentsQuery holds the query parameters of the pending students listing.
type PendingStudentsQuery struct {
	student.QueryFilter
	Page      int    `query:"page" validate:"min=0,max=1000000"`
	Limit     int    `query:"limit" validate:"min=0,max=100"`
	SortBy    string `query:"sortBy"`
	SortOrder string `query:"sortOrder" validate:"omitempty,oneof=asc desc"`
}

func (q PendingStudentsQuery) Pagination() core.Pagination {
	return core.Pagination{Page: q.Page, Limit: q.Limit}
}

// Ordering maps sortBy/sortOrder to a column ordering, desc by default.
func (q PendingStudentsQuery) Ordering() []core.DBOrdering {
	col, ok := student.SortFields[q.SortBy]
	if !ok {
		return nil
	}
	return []core.DBOrdering{{Field: col, Ascending: q.SortOrder == "asc"}}
}

type PaymentUpdateRequest struct {
	Action          string `json:"action" validate:"required,oneof=approve reject"`
	PaymentType     string `json:"paymentType" validate:"required,oneof=partial full"`
	AmountPaid      *int64 `json:"amountPaid" validate:"required,min=0"`
	RejectionReason string `json:"rejectionReason" validate:"max=1000"`
}

func (r PaymentUpdateRequest) Update(reviewer core.Person) enrollment.PaymentUpdate {
	var amount int64
	if r.AmountPaid != nil {
		amount = *r.AmountPaid
	}
	return enrollment.PaymentUpdate{
		Action:          enrollment.Action(r.Action),
		PaymentType:     enrollment.PaymentType(r.PaymentType),
		AmountPaid:      amount,
		RejectionReason: core.CleanString(r.RejectionReason),
		ReviewedBy:      reviewer,
	}
}
