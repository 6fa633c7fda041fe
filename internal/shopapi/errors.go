package shopapi

import "fmt"

// APIError is a non-2xx answer, or a 2xx answer whose body was not JSON.
type APIError struct {
	Status     int
	StatusText string
	Message    string
	Errors     map[string][]string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

func (e *APIError) StatusCode() int { return e.Status }

func (e *APIError) APIMessage() string { return e.Message }

func (e *APIError) FieldErrors() map[string][]string { return e.Errors }

// errorBody is the shape error responses are parsed with.
type errorBody struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

// messageFor picks the message shown for a failed response. A few statuses
// always get a fixed wording.
func messageFor(status int, statusText string, body errorBody) string {
	switch status {
	case 401:
		return "Unauthorized. Please login again."
	case 403:
		return "Forbidden. You do not have permission to access this resource."
	case 404:
		return "Resource not found."
	case 500:
		return "Server error. Please try again later."
	}
	if body.Message != "" {
		return body.Message
	}
	return fmt.Sprintf("API Error: %d %s", status, statusText)
}
