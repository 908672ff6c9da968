package errorhandling

import "fmt"

// Resolution is the outcome of a failure: either handled with a response
// status code, or left to the engine's default failure path.
type Resolution struct {
	handled    bool
	statusCode int
}

func Handled(statusCode int) Resolution {
	return Resolution{handled: true, statusCode: statusCode}
}

func Unhandled() Resolution {
	return Resolution{}
}

func (r Resolution) IsHandled() bool {
	return r.handled
}

// StatusCode returns the response status code of a handled resolution
func (r Resolution) StatusCode() (int, bool) {
	return r.statusCode, r.handled
}

func (r Resolution) String() string {
	if !r.handled {
		return "unhandled"
	}
	return fmt.Sprintf("handled(%d)", r.statusCode)
}
