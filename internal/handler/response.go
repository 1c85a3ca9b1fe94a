package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"
)

// Envelope is the body of every JSON response.
type Envelope struct {
    Data    interface{} `json:"data"`
    Message string      `json:"message"`
    Success bool        `json:"success"`
}

// APIError is a failure with its HTTP status. Details, when set, is sent
// as the envelope data.
type APIError struct {
    Status  int
    Message string
    Details interface{}
}

func (e *APIError) Error() string { return e.Message }

func newAPIError(status int, msg string) *APIError {
    return &APIError{Status: status, Message: msg}
}

func ok(c echo.Context, data interface{}, msg string) error {
    return c.JSON(http.StatusOK, Envelope{Data: data, Message: msg, Success: true})
}

func created(c echo.Context, data interface{}, msg string) error {
    return c.JSON(http.StatusCreated, Envelope{Data: data, Message: msg, Success: true})
}

// bindAndValidate binds the request into req and runs the echo validator.
// normalizer is implemented by request DTOs that clean their fields
// before validation.
type normalizer interface {
    normalize()
}

func bindAndValidate(c echo.Context, req interface{}) error {
    if err := c.Bind(req); err != nil {
        return newAPIError(http.StatusBadRequest, "invalid body")
    }
    if n, ok := req.(normalizer); ok {
        n.normalize()
    }
    return c.Validate(req)
}
