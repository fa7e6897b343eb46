package types

// SuccessEnvelope is the body of every 2xx API response.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the client-facing error shape. Details carries field-level
// validation errors and is omitted for codes that disallow it.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope is the body of every non-2xx API response.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
