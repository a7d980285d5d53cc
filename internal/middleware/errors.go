package middleware

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
)

// statusCoder is implemented by application errors that know their HTTP code.
type statusCoder interface {
	StatusCode() int
}

// StatusOf resolves the response code for an error returned by a handler.
func StatusOf(err error) int {
	var sc statusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return http.StatusInternalServerError
}

// ErrorHandler renders every error as {status, message} with status "fail"
// for 4xx and "error" otherwise. Outside production, 5xx responses also
// carry the error chain under "stack".
func ErrorHandler(production bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := StatusOf(err)
		message := err.Error()

		var sc statusCoder
		var he *echo.HTTPError
		if !errors.As(err, &sc) && errors.As(err, &he) {
			message = fmt.Sprint(he.Message)
			if code == http.StatusNotFound && he.Message == http.StatusText(http.StatusNotFound) {
				message = "Not Found - " + c.Request().URL.Path
			}
		}

		status := "error"
		if code >= 400 && code < 500 {
			status = "fail"
		}
		body := echo.Map{"status": status, "message": message}

		if code >= http.StatusInternalServerError {
			log.Printf("%s %s failed: %v", c.Request().Method, c.Request().URL.Path, errorChain(err))
			if !production {
				body["stack"] = errorChain(err)
			}
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, body)
		}
		if err != nil {
			log.Printf("failed to write error response: %v", err)
		}
	}
}

// errorChain flattens err and every wrapped cause into one line.
func errorChain(err error) string {
	out := err.Error()
	for cause := errors.Unwrap(err); cause != nil; cause = errors.Unwrap(cause) {
		out += " <- " + cause.Error()
	}
	return out
}
