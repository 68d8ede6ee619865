package types

// DataEnvelope wraps every successful JSON body.
type DataEnvelope struct {
	Data any `json:"data"`
}

// ErrorBody is the client view of a failed request. Retryable tells the caller
// the same request may succeed later.
type ErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
	Details   any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}
