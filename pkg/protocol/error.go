package protocol

// ErrorCode identifies the type of error reported to a client.
type ErrorCode string

const (
	CodeUnknown       ErrorCode = "unknown"        // Unclassified error
	CodeNotHost       ErrorCode = "not_host"       // start-call by a non-host
	CodeInvalidFrame  ErrorCode = "invalid_frame"  // Malformed envelope or payload
	CodeQueueFull     ErrorCode = "queue_full"     // Outbound buffer overflowed
	CodeNotAuthorized ErrorCode = "not_authorized" // Connection limit rejected
)

// String returns the string representation of the error code.
func (ec ErrorCode) String() string {
	if ec == "" {
		return string(CodeUnknown)
	}
	return string(ec)
}

// ErrorMessage is sent to a single client when a request fails.
// Errors are never broadcast; a bad request from one connection must not
// be visible to any other.
type ErrorMessage struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message,omitempty"`
}

// NewError creates a new ErrorMessage.
func NewError(code ErrorCode, message string) *ErrorMessage {
	return &ErrorMessage{Code: code, Message: message}
}

// Error implements the error interface.
func (em *ErrorMessage) Error() string {
	if em.Message == "" {
		return em.Code.String()
	}
	return em.Code.String() + ": " + em.Message
}
