package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/rryowa/blog_auth/internal/service"
	"github.com/rryowa/blog_auth/internal/util"
)

type ErrorResponse struct {
	Success           bool              `json:"success"`
	Error             string            `json:"error"`
	Code              string            `json:"code"`
	FieldErrors       map[string]string `json:"field_errors,omitempty"`
	RemainingAttempts *int              `json:"remaining_attempts,omitempty"`
}

type sentinelMapping struct {
	err    error
	status int
	code   string
}

// Order matters: wrapped token errors carry both their own and the codec's sentinel.
var sentinelMappings = []sentinelMapping{
	{service.ErrMissingRefreshToken, http.StatusBadRequest, "MISSING_REFRESH_TOKEN"},
	{service.ErrInvalidTokenType, http.StatusUnauthorized, "INVALID_TOKEN_TYPE"},
	{service.ErrInvalidRefreshToken, http.StatusUnauthorized, "INVALID_REFRESH_TOKEN"},
	{service.ErrRefreshTokenInvalid, http.StatusUnauthorized, "REFRESH_TOKEN_INVALID"},
	{service.ErrRefreshTokenExpired, http.StatusUnauthorized, "REFRESH_TOKEN_EXPIRED"},
	{service.ErrMissingToken, http.StatusUnauthorized, "MISSING_TOKEN"},
	{service.ErrInvalidToken, http.StatusUnauthorized, "INVALID_TOKEN"},
	{service.ErrAuthenticationRequired, http.StatusUnauthorized, "AUTHENTICATION_REQUIRED"},
	{service.ErrAdminRequired, http.StatusForbidden, "ADMIN_REQUIRED"},
	{service.ErrUserNotFound, http.StatusNotFound, "NOT_FOUND"},
	{service.ErrInvalidResetTicket, http.StatusBadRequest, "INVALID_RESET_TICKET"},
}

func ErrorHandler(log *zap.SugaredLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := classify(err)
		if status >= http.StatusInternalServerError {
			log.Errorw("HTTP error", "error", err, "uri", c.Request().RequestURI)
		}

		var locked *service.LockedError
		if errors.As(err, &locked) {
			c.Response().Header().Set("Retry-After", strconv.Itoa(int(locked.RetryAfter.Seconds()+0.5)))
		}

		if err := c.JSON(status, body); err != nil {
			log.Errorw("failed to write json response", "error", err)
		}
	}
}

func classify(err error) (int, ErrorResponse) {
	var (
		validation *service.ValidationError
		attempt    *service.AttemptError
		locked     *service.LockedError
		respErr    util.MyResponseError
		httpErr    *echo.HTTPError
	)

	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, ErrorResponse{Error: validation.Error(), Code: "INVALID_FIELDS", FieldErrors: validation.Fields}
	case errors.As(err, &locked):
		return http.StatusTooManyRequests, ErrorResponse{Error: locked.Error(), Code: "RATE_LIMITED"}
	case errors.As(err, &attempt):
		remaining := attempt.Remaining
		body := ErrorResponse{
			Error:             attempt.Error(),
			Code:              "INVALID_CREDENTIALS",
			FieldErrors:       map[string]string{attempt.Field: attempt.Reason},
			RemainingAttempts: &remaining,
		}
		switch attempt.Field {
		case "captcha":
			body.Code = "CAPTCHA_INVALID"
			return http.StatusBadRequest, body
		case "password", "answer":
			return http.StatusUnauthorized, body
		default:
			return http.StatusBadRequest, body
		}
	case errors.As(err, &respErr):
		return respErr.Status, ErrorResponse{Error: respErr.Msg, Code: respErr.Code}
	}

	for _, m := range sentinelMappings {
		if errors.Is(err, m.err) {
			return m.status, ErrorResponse{Error: m.err.Error(), Code: m.code}
		}
	}

	if errors.As(err, &httpErr) {
		return httpErr.Code, ErrorResponse{Error: fmt.Sprint(httpErr.Message), Code: httpCode(httpErr.Code)}
	}

	return http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Code: "INTERNAL_ERROR"}
}

func httpCode(status int) string {
	switch {
	case status == http.StatusNotFound:
		return "NOT_FOUND"
	case status == http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case status == http.StatusUnauthorized:
		return "AUTHENTICATION_REQUIRED"
	case status < http.StatusInternalServerError:
		return "INVALID_FIELDS"
	default:
		return "INTERNAL_ERROR"
	}
}
