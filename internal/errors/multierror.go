package errors

import (
	"errors"
	"strings"
)

// MultiError collects errors from independent steps, e.g. one per interface.
type MultiError struct {
	Errors []error
}

// Add records err when it is non-nil.
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// Len returns the number of recorded errors.
func (m *MultiError) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Errors)
}

func (m *MultiError) Error() string {
	if m.Len() == 0 {
		return ""
	}
	messages := make([]string, 0, len(m.Errors))
	for _, err := range m.Errors {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// ErrorOrNil returns nil when nothing was recorded.
func (m *MultiError) ErrorOrNil() error {
	if m.Len() == 0 {
		return nil
	}
	return m
}

// Unwrap lets errors.Is and errors.As inspect every recorded error.
func (m *MultiError) Unwrap() []error {
	if m == nil {
		return nil
	}
	return m.Errors
}

// Is reports whether any recorded error matches target.
func (m *MultiError) Is(target error) bool {
	for _, err := range m.Errors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
