package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/student"
)

type adminApi struct {
	studentSvc    *student.Service
	enrollmentSvc *enrollment.Service
	validate      *validator.Validate
}

func registerAdminAPI(g *echo.Group, jwt echo.MiddlewareFunc, api *adminApi) {
	ag := g.Group("/admin", jwt, adminMiddleware())

	ag.PATCH("/enrollment/:enrollmentId/payment", api.updatePaymentStatus)

	og := ag.Group("/ongoing")
	og.GET("", api.queryPending)
	og.GET("/:enrollmentId", api.enrollmentDetails)
	og.PATCH("/:enrollmentId/update-payment-status", api.updatePaymentStatus)
}

// Handlers

func (api *adminApi) queryPending(ctx echo.Context) error {
	var query PendingStudentsQuery
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to PendingStudentsQuery")
	}
	if err := api.validate.Struct(query); err != nil {
		return err
	}

	ordering := query.Ordering()
	if ordering == nil {
		var ord Ordering
		ord.Bind(ctx)
		ordering = ord.Orderings
	}

	page, err := api.studentSvc.QueryPending(ctx.Request().Context(), query.QueryFilter, ordering, query.Pagination())
	if err != nil {
		return failed(err, msgPendingQueryFailed)
	}
	return ctx.JSON(http.StatusOK, envelope{
		Success: true,
		Message: "Pending users retrieved successfully",
		Data:    page,
	})
}

func (api *adminApi) enrollmentDetails(ctx echo.Context) error {
	e, err := api.enrollmentSvc.GetDetails(ctx.Request().Context(), ctx.Param("enrollmentId"))
	if err != nil {
		return failed(err, msgEnrollmentGetFailed)
	}
	return ctx.JSON(http.StatusOK, envelope{Success: true, Data: e})
}

func (api *adminApi) updatePaymentStatus(ctx echo.Context) error {
	var data PaymentUpdateRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PaymentUpdateRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	update := data.Update(contextPerson(ctx))
	res, err := api.enrollmentSvc.UpdatePaymentStatus(ctx.Request().Context(), ctx.Param("enrollmentId"), update)
	if err != nil {
		return failed(err, msgPaymentUpdateFailed)
	}

	msg := "Payment approved successfully"
	if update.Action == enrollment.ActionReject {
		msg = "Payment rejected successfully"
	}
	return ctx.JSON(http.StatusOK, envelope{Success: true, Message: msg, Data: res})
}
