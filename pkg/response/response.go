package response

// ErrorResponse is the failure payload returned by every endpoint.
type ErrorResponse struct {
	Code    string      `json:"code"`
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

func Error(code, message string, details interface{}) ErrorResponse {
	return ErrorResponse{
		Code:    code,
		Error:   message,
		Details: details,
	}
}
