package resource

import "fmt"

// NotFoundError is returned for operations on an unregistered resource id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("resource %q not found", e.ID)
}

// InvalidOptionError reports a value rejected by an option's validator.
// The previously stored value, if any, is left untouched.
type InvalidOptionError struct {
	Option string
	Value  any
	Reason string
}

func (e *InvalidOptionError) Error() string {
	return fmt.Sprintf("invalid value %#v for option %q: %s", e.Value, e.Option, e.Reason)
}

// UnknownOptionError reports an option name missing from the option table.
type UnknownOptionError struct {
	Option string
}

func (e *UnknownOptionError) Error() string {
	return fmt.Sprintf("unknown option %q", e.Option)
}

func invalid(option string, value any, reason string) error {
	return &InvalidOptionError{Option: option, Value: value, Reason: reason}
}
