package cachekey

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// ErrInvalidParameter carries every malformed value given for a single parameter.
type ErrInvalidParameter struct {
	Name   string
	Values []string
}

func NewErrInvalidParameter(name string, values ...string) *ErrInvalidParameter {
	return &ErrInvalidParameter{Name: name, Values: values}
}

func (e *ErrInvalidParameter) Error() string {
	return fmt.Sprintf("malformed values specified in %q: %s", e.Name, strings.Join(e.Values, ", "))
}

type ErrEmptySelection struct {
	Name string
}

func NewErrEmptySelection(name string) *ErrEmptySelection {
	return &ErrEmptySelection{Name: name}
}

func (e *ErrEmptySelection) Error() string {
	return fmt.Sprintf("cannot run search on empty selection of %q", e.Name)
}

// ValidationError groups every problem found in one set of parameters.
// errors.As reaches each of the grouped errors.
type ValidationError struct {
	errs *multierror.Error
}

func newValidationError(errs *multierror.Error) error {
	if errs.ErrorOrNil() == nil {
		return nil
	}
	errs.ErrorFormat = func(es []error) string {
		msgs := make([]string, 0, len(es))
		for _, e := range es {
			msgs = append(msgs, e.Error())
		}
		return strings.Join(msgs, "; ")
	}
	return &ValidationError{errs: errs}
}

func (e *ValidationError) Error() string {
	return e.errs.Error()
}

func (e *ValidationError) Unwrap() []error {
	return e.errs.WrappedErrors()
}

// Problems returns the individual validation errors.
func (e *ValidationError) Problems() []error {
	return e.errs.WrappedErrors()
}
