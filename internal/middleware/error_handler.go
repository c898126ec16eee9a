package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"restoPlay/pkg/logger"
	jsonres "restoPlay/pkg/response"

	"github.com/labstack/echo/v4"
)

// ErrorHandler renders errors that escaped a handler as a JSON error payload.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := "internal server error"

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		message = fmt.Sprint(he.Message)
	} else {
		logger.Error("Unhandled error", "path", c.Path(), "error", err)
	}

	var respErr error
	if c.Request().Method == http.MethodHead {
		respErr = c.NoContent(code)
	} else {
		respErr = c.JSON(code, jsonres.Error(http.StatusText(code), message, nil))
	}
	if respErr != nil {
		logger.Error("Failed to write error response", "error", respErr)
	}
}
