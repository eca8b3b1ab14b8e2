package api

// CompletionRequest is a token-in token-out greedy decode request.
type CompletionRequest struct {
	Tokens      []int    `json:"tokens"`
	Steps       int      `json:"steps"`
	Temperature *float64 `json:"temperature,omitempty"`
}

// CompletionResponse mirrors the shape of the request it answers.
type CompletionResponse struct {
	ID        string  `json:"id"`
	Object    string  `json:"object"`
	Created   int64   `json:"created"`
	Tokens    []int   `json:"tokens"`
	Invariant bool    `json:"invariant"`
	TPS       float64 `json:"tokens_per_second,omitempty"`
}

// InvarianceResponse reports the current routing mode.
type InvarianceResponse struct {
	Enabled bool `json:"enabled"`
}

// ResponseError is the error payload envelope.
type ResponseError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Param   string `json:"param,omitempty"`
}
