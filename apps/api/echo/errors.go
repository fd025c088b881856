package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/student"
)

var (
	errUnauthorized  = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errHttpForbidden = echo.NewHTTPError(http.StatusForbidden, "permission denied")
)

const (
	msgValidationFailed    = "Validation failed"
	msgServerError         = "Internal server error"
	msgNotificationFailed  = "Failed to send enrollment email. Payment not approved."
	msgEnrollmentNotFound  = "Enrollment not found"
	msgStudentNotFound     = "Student not found"
	msgPaymentUpdateFailed = "Failed to update payment status"
	msgPendingQueryFailed  = "Failed to get pending users"
	msgEnrollmentGetFailed = "Failed to get enrollment details"
)

// envelope is the body of every API response.
type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	Data    interface{}       `json:"data,omitempty"`
	Error   string            `json:"error,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// opError names the operation that failed, for the message of a server error.
type opError struct {
	Message string
	Err     error
}

func (e *opError) Error() string { return e.Message + ": " + e.Err.Error() }
func (e *opError) Unwrap() error { return e.Err }

func failed(err error, msg string) error {
	return &opError{Message: msg, Err: err}
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		failMsg := msgServerError
		var op *opError
		if errors.As(err, &op) {
			failMsg = op.Message
			err = op.Err
		}

		code := http.StatusInternalServerError
		resp := envelope{Message: failMsg}
		detail := err.Error()

		var amtErr *enrollment.AmountError
		var notifErr *enrollment.NotificationError

		switch {
		case errors.As(err, &amtErr):
			code, resp.Message = http.StatusBadRequest, amtErr.Error()
			detail = ""
		case errors.As(err, &notifErr):
			resp.Message = msgNotificationFailed
			detail = notifErr.Err.Error()
			logger.Error(msgNotificationFailed, err, contextPerson(ctx))
		default:
			switch origErr := errors.Cause(err).(type) {
			case *echo.HTTPError:
				if origErr == middleware.ErrJWTMissing {
					origErr = echo.NewHTTPError(http.StatusUnauthorized, origErr.Message)
				}
				if origErr.Internal != nil {
					if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
						origErr = herr
					}
				}
				code = origErr.Code
				if m, ok := origErr.Message.(string); ok {
					resp.Message = m
				} else {
					resp.Message = http.StatusText(code)
				}
				detail = ""
			case validator.ValidationErrors:
				code, resp.Message = http.StatusBadRequest, msgValidationFailed
				resp.Errors = core.TranslateErrors(origErr, translator)
				detail = ""
			case *core.ValidationError:
				code, resp.Message = http.StatusBadRequest, origErr.Error()
				if len(origErr.Fields) > 0 {
					resp.Message = msgValidationFailed
					resp.Errors = make(map[string]string, len(origErr.Fields))
					for _, fErr := range origErr.Fields {
						resp.Errors[fErr.Field] = fErr.Error
					}
				}
				detail = ""
			default:
				switch origErr {
				case enrollment.ErrNotFound:
					code, resp.Message, detail = http.StatusNotFound, msgEnrollmentNotFound, ""
				case student.ErrNotFound:
					code, resp.Message, detail = http.StatusNotFound, msgStudentNotFound, ""
				case enrollment.ErrInvalidAction:
					code, resp.Message, detail = http.StatusBadRequest, origErr.Error(), ""
				case enrollment.ErrInvalidTransition, enrollment.ErrLocked:
					code, resp.Message, detail = http.StatusConflict, origErr.Error(), ""
				default: // any other error is a server error
					logger.Error(failMsg, errors.Wrap(err, failMsg), contextPerson(ctx))

					// shutting down...
					if core.IsShutdown(err) {
						signalShutdown()
					}
				}
			}
		}

		if ctx.Echo().Debug {
			resp.Error = detail
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, resp)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
