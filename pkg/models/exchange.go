package models

import "github.com/google/uuid"

// Exchange property keys
const (
	// PropertyErrorHandlerHandled holds the handled flag of a caught failure.
	PropertyErrorHandlerHandled = "error-handler-handled"
	PropertyRouteID             = "route-id"
	PropertyFailureEndpoint     = "failure-endpoint"
)

// Exchange is the per-traversal routing unit wrapping an inbound message.
// It is owned by a single goroutine for the duration of a route run.
type Exchange struct {
	ID         string
	In         *Message
	properties map[string]interface{}
	err        error
}

func NewExchange(msg *Message) *Exchange {
	if msg == nil {
		msg = NewMessage("", nil)
	}
	if msg.Headers == nil {
		msg.Headers = make(map[string]interface{})
	}
	return &Exchange{
		ID:         uuid.NewString(),
		In:         msg,
		properties: make(map[string]interface{}),
	}
}

func (e *Exchange) Property(key string) (interface{}, bool) {
	v, ok := e.properties[key]
	return v, ok
}

func (e *Exchange) SetProperty(key string, value interface{}) {
	if e.properties == nil {
		e.properties = make(map[string]interface{})
	}
	e.properties[key] = value
}

// Handled reports the handled flag and whether it has been set at all
func (e *Exchange) Handled() (handled bool, set bool) {
	v, ok := e.properties[PropertyErrorHandlerHandled]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// Err returns the failure caught during the traversal, if any
func (e *Exchange) Err() error {
	return e.err
}

func (e *Exchange) SetErr(err error) {
	e.err = err
}

// Failed reports whether a failure was caught, handled or not
func (e *Exchange) Failed() bool {
	return e.err != nil
}
