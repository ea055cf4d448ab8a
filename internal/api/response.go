package api

// Error codes returned in the response envelope.
const (
	CodeBadRequest    = "BAD_REQUEST"
	CodeNotFound      = "NOT_FOUND"
	CodeSlotLocked    = "SLOT_LOCKED"
	CodeInternal      = "INTERNAL"
	CodeRateLimited   = "RATE_LIMITED"
	CodeInvalidImport = "INVALID_IMPORT"
)

// ErrorResponse is the envelope for failed requests.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func errResp(code, message string) ErrorResponse {
	return ErrorResponse{Code: code, Message: message}
}
