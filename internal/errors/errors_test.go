package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCertErrorError(t *testing.T) {
	testCases := []struct {
		name     string
		err      *CertError
		expected string
	}{
		{
			name:     "code and message",
			err:      NewValidationError(ErrCodeInvalidField, "font size must be positive"),
			expected: "[ERR_INVALID_FIELD] font size must be positive",
		},
		{
			name:     "with file",
			err:      NewValidationError(ErrCodeEmptyRecords, "no data found").WithFile("people.csv"),
			expected: "[ERR_EMPTY_RECORDS] people.csv: no data found",
		},
		{
			name:     "with cause",
			err:      NewIOError(ErrCodeFileNotFound, "cannot open", fmt.Errorf("boom")),
			expected: "[ERR_FILE_NOT_FOUND] cannot open: boom",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.err.Error())
		})
	}
}

func TestCertErrorIsAndUnwrap(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := NewEncodeError(ErrCodeEncode, "zip failed", cause)

	assert.True(t, errors.Is(err, cause))
	assert.True(t, errors.Is(err, &CertError{Type: ErrorTypeEncode, Code: ErrCodeEncode}))
	assert.False(t, errors.Is(err, &CertError{Type: ErrorTypeRender, Code: ErrCodeEncode}))

	wrapped := fmt.Errorf("export: %w", ErrBusy)
	assert.True(t, errors.Is(wrapped, ErrBusy))
}

func TestRecoverability(t *testing.T) {
	assert.True(t, IsRecoverable(NewValidationError(ErrCodeMalformedRecords, "bad csv")))
	assert.True(t, IsRecoverable(NewNetworkError(ErrCodeBackgroundLoad, "timeout", nil)))
	assert.False(t, IsRecoverable(NewRenderError(ErrCodeRasterize, "draw failed", nil)))
	assert.False(t, IsRecoverable(fmt.Errorf("plain")))
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrorTypeIO, ErrCodeFileNotFound, "x"))

	inner := NewValidationError(ErrCodeEmptyRecords, "empty").WithFile("a.csv")
	outer := Wrap(inner, ErrorTypeIO, ErrCodeFileNotFound, "load records")
	require.NotNil(t, outer)
	assert.Equal(t, "a.csv", outer.FilePath)
	assert.True(t, outer.Recoverable)
	assert.Equal(t, inner, ExtractCause(outer))

	render := WrapRender(fmt.Errorf("nope"), "rasterize record 3")
	assert.True(t, IsType(render, ErrorTypeRender))
	assert.False(t, render.Recoverable)
}

func TestValidationErrorCollection(t *testing.T) {
	var vec ValidationErrorCollection
	assert.Nil(t, vec.ToCertError(ErrCodeInvalidTemplate))

	vec.Add("width", "must be positive")
	vec.Add("fields[0].align", "invalid")

	err := vec.ToCertError(ErrCodeInvalidTemplate)
	require.NotNil(t, err)
	assert.Equal(t, ErrorTypeValidation, err.Type)
	assert.Contains(t, err.Message, "width: must be positive")
	assert.Contains(t, err.Message, "fields[0].align: invalid")
}

type recordingLogger struct {
	warns  int
	errors int
}

func (l *recordingLogger) Error(ctx context.Context, err error, msg string, fields ...interface{}) {
	l.errors++
}

func (l *recordingLogger) Warn(ctx context.Context, err error, msg string, fields ...interface{}) {
	l.warns++
}

func TestErrorHandler(t *testing.T) {
	logger := &recordingLogger{}
	h := NewErrorHandler(logger)
	ctx := context.Background()

	h.Handle(ctx, nil)
	h.Handle(ctx, NewValidationError(ErrCodeEmptyRecords, "empty"))
	h.Handle(ctx, NewRenderError(ErrCodeRasterize, "boom", nil))
	h.Handle(ctx, fmt.Errorf("plain"))

	assert.Equal(t, 1, logger.warns)
	assert.Equal(t, 2, logger.errors)
}
