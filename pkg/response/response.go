package response

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

var EmptyRequestBodyResponse = Response{
	Status:  StatusError,
	Error:   "Empty Request Body",
	Message: "Request body is empty. Please provide necessary data.",
}

var BadRequestResponse = Response{
	Status:  StatusError,
	Error:   "Bad Request",
	Message: "Failed to process the request. Please check the request data.",
}

var ResourceNotFoundResponse = Response{
	Status:  StatusError,
	Error:   "Resource Not Found",
	Message: "The requested resource was not found.",
}

var SlugConflictResponse = Response{
	Status:  StatusError,
	Error:   "Slug Conflict",
	Message: "The requested slug is already taken. Please choose another one.",
}

var UserConflictResponse = Response{
	Status:  StatusError,
	Error:   "User Conflict",
	Message: "A user with this email is already registered.",
}

var UnauthorizedResponse = Response{
	Status:  StatusError,
	Error:   "Unauthorized",
	Message: "Authentication credentials are missing or invalid.",
}

var ServerErrorResponse = Response{
	Status:  StatusError,
	Error:   "Server Error",
	Message: "An internal server error occurred. Please try again later.",
}

type Response struct {
	Status  string            `json:"status"`
	Error   string            `json:"error,omitempty"`
	Message string            `json:"message"`
	Details []validationError `json:"details,omitempty"`
	Data    any               `json:"data,omitempty"`
}

func SuccessResponse(msg string, data ...any) Response {
	resp := Response{
		Status:  StatusSuccess,
		Message: msg,
	}

	if len(data) > 0 {
		resp.Data = data[0]
	}

	return resp
}

type validationError struct {
	Field string `json:"field"`
	Value any    `json:"value"`
	Issue string `json:"issue"`
}

func getValidationErrors(err error) []validationError {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return nil
	}

	var details []validationError
	for _, err := range validationErrs {
		detail := validationError{
			Field: err.Field(),
			Value: err.Value(),
		}

		switch err.Tag() {
		case "required":
			detail.Issue = "This field is required."
		case "url":
			detail.Issue = "Invalid url."
		case "email":
			detail.Issue = "Invalid email."
		case "alphanum":
			detail.Issue = "Only letters and digits are allowed."
		case "min":
			detail.Issue = fmt.Sprintf("Must be at least %s.", err.Param())
		case "max":
			detail.Issue = fmt.Sprintf("Must be at most %s.", err.Param())
		default:
			detail.Issue = "Invalid value."
		}

		details = append(details, detail)
	}

	return details
}

func ValidationErrorResponse(err error) Response {
	return Response{
		Status:  StatusError,
		Error:   "Validation Error",
		Message: "The request data failed validation.",
		Details: getValidationErrors(err),
	}
}
