package handler

import (
    "errors"
    "net/http"

    "github.com/go-playground/validator/v10"
    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"
)

// HTTPErrorHandler renders every error returned by a handler or middleware
// as an Envelope. Unknown errors become 500 and are logged; their text is
// never sent to the client.
func HTTPErrorHandler(log logrus.FieldLogger, v *Validator) echo.HTTPErrorHandler {
    return func(err error, c echo.Context) {
        status := http.StatusInternalServerError
        msg := http.StatusText(http.StatusInternalServerError)
        var details interface{}

        var apiErr *APIError
        var httpErr *echo.HTTPError
        var vErrs validator.ValidationErrors
        switch {
        case errors.As(err, &apiErr):
            status, msg, details = apiErr.Status, apiErr.Message, apiErr.Details
        case errors.As(err, &vErrs):
            status, msg = http.StatusBadRequest, "validation failed"
            details = v.FieldErrors(vErrs)
        case errors.As(err, &httpErr):
            if inner, ok := httpErr.Internal.(*echo.HTTPError); ok {
                httpErr = inner
            }
            status = httpErr.Code
            if m, ok := httpErr.Message.(string); ok {
                msg = m
            } else {
                msg = http.StatusText(status)
            }
        default:
            log.WithError(err).WithFields(logrus.Fields{
                "method": c.Request().Method,
                "path":   c.Path(),
            }).Error("unhandled error")
        }

        if c.Response().Committed {
            return
        }
        if c.Request().Method == http.MethodHead {
            err = c.NoContent(status)
        } else {
            err = c.JSON(status, Envelope{Data: details, Message: msg, Success: false})
        }
        if err != nil {
            log.WithError(err).Error("write error response")
        }
    }
}
