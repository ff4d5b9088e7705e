package dto

// Res is the generic response envelope
type Res struct {
	ResponseCode    string      `json:"response_code"`
	ResponseMessage string      `json:"response_message"`
	Data            interface{} `json:"data,omitempty"`
}

// ResError is the machine-readable error body for API responses.
// Message is human-safe; provider diagnostics stay in logs.
type ResError struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}
