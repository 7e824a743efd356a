package domain

// Result is the uniform envelope returned for every persistence call and
// every API response.
type Result[T any] struct {
	Data    T      `json:"data"`
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`

	// Err keeps the original error for errors.Is checks; it is not serialized.
	Err error `json:"-"`
}

func OK[T any](data T, msg string) Result[T] {
	return Result[T]{Data: data, Success: true, Message: msg}
}

func Fail[T any](err error, msg string) Result[T] {
	r := Result[T]{Success: false, Message: msg, Err: err}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// Wrap converts a (value, error) pair into an envelope.
func Wrap[T any](data T, err error, okMsg, failMsg string) Result[T] {
	if err != nil {
		return Fail[T](err, failMsg)
	}
	return OK(data, okMsg)
}
