package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNilCause(t *testing.T) {
	assert.Nil(t, New(CategoryCritical, nil, ErrorContext{}))
	assert.NoError(t, WrapRecoverable(nil, "noop"))
}

func TestErrorMessageIncludesContext(t *testing.T) {
	err := WrapRecoverable(errors.New("boom"), "reset", ErrorContext{Interface: "lo"}, ErrorContext{Device: "ifb4lo"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[recoverable] boom")
	assert.Contains(t, err.Error(), "interface:lo")
	assert.Contains(t, err.Error(), "operation:reset")
	assert.Contains(t, err.Error(), "device:ifb4lo")
}

func TestMergeOverridesAndCombinesExtra(t *testing.T) {
	base := ErrorContext{Operation: "a", Interface: "lo", Extra: map[string]any{"x": 1}}
	merged := base.Merge(ErrorContext{Operation: "b", Extra: map[string]any{"y": 2}})

	assert.Equal(t, "b", merged.Operation)
	assert.Equal(t, "lo", merged.Interface)
	assert.Equal(t, map[string]any{"x": 1, "y": 2}, merged.Extra)
	assert.Equal(t, map[string]any{"x": 1}, base.Extra, "merge must not mutate receiver")
}

func TestCategoryOf(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", New(CategoryOptional, errors.New("inner"), ErrorContext{}))
	assert.Equal(t, CategoryOptional, CategoryOf(wrapped, CategoryCritical))
	assert.Equal(t, CategoryCritical, CategoryOf(errors.New("plain"), CategoryCritical))
}

func TestMultiError(t *testing.T) {
	var m MultiError
	assert.NoError(t, m.ErrorOrNil())

	m.Add(nil)
	m.Add(fmt.Errorf("lo: %w", fs.ErrNotExist))
	m.Add(errors.New("enp0s25: down"))

	require.Equal(t, 2, m.Len())
	err := m.ErrorOrNil()
	require.Error(t, err)
	assert.Equal(t, "lo: file does not exist; enp0s25: down", err.Error())
	assert.ErrorIs(t, err, fs.ErrNotExist)
}
