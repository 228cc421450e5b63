// Package response is the single place where internal failures are mapped
// to the transport-level JSON envelope.
package response

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Response is the uniform error envelope returned on every failure.
type Response struct {
	StatusCode int    `json:"status_code"`
	ErrorCode  *int   `json:"error_code"`
	Message    string `json:"message"`
}

const (
	codeAuth       = 1
	codeValidation = 2
)

func Error(statusCode int, msg string) Response {
	return Response{
		StatusCode: statusCode,
		Message:    msg,
	}
}

func Unauthorized(msg string) Response {
	code := codeAuth

	return Response{
		StatusCode: http.StatusUnauthorized,
		ErrorCode:  &code,
		Message:    msg,
	}
}

func ValidationError(errs validator.ValidationErrors) Response {
	var errMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errMsgs = append(errMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "email":
			errMsgs = append(errMsgs, fmt.Sprintf("field %s is not a valid email", err.Field()))
		default:
			errMsgs = append(errMsgs, fmt.Sprintf("field %s is not valid", err.Field()))
		}
	}

	code := codeValidation

	return Response{
		StatusCode: http.StatusBadRequest,
		ErrorCode:  &code,
		Message:    strings.Join(errMsgs, ", "),
	}
}
