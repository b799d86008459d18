package dto

// Response is the envelope every endpoint answers with. The status
// fields are redundant on purpose: the frontend consuming this API
// checks `status` while older clients read `status_msg`.
type Response struct {
	Status    bool   `json:"status"`
	StatusMsg string `json:"status_msg"`
	Message   string `json:"message,omitempty"`
	Data      any    `json:"data,omitempty"`
	Deals     any    `json:"deals,omitempty"`
	Error     string `json:"error,omitempty"`
}

// NewSuccessResponse creates a success envelope carrying data.
func NewSuccessResponse(message string, data any) Response {
	return Response{
		Status:    true,
		StatusMsg: "success",
		Message:   message,
		Data:      data,
	}
}

// NewDealsResponse creates a success envelope carrying created deals.
func NewDealsResponse(message string, deals any) Response {
	return Response{
		Status:    true,
		StatusMsg: "success",
		Message:   message,
		Deals:     deals,
	}
}

// NewErrorResponse creates an error envelope. The error detail is
// optional; user-facing text goes in message.
func NewErrorResponse(message string, err error) Response {
	r := Response{
		Status:    false,
		StatusMsg: "error",
		Message:   message,
	}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}
