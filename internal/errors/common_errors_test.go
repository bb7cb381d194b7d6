package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorType_Constants(t *testing.T) {
	tests := []struct {
		name     string
		errType  ErrorType
		expected string
	}{
		{name: "parsing", errType: ErrTypeParsing, expected: "PARSING"},
		{name: "storage", errType: ErrTypeStorage, expected: "STORAGE"},
		{name: "validation", errType: ErrTypeValidation, expected: "VALIDATION"},
		{name: "not found", errType: ErrTypeNotFound, expected: "NOT_FOUND"},
		{name: "config", errType: ErrTypeConfig, expected: "CONFIG"},
		{name: "plate format", errType: ErrTypePlateFormat, expected: "PLATE_FORMAT"},
		{name: "render", errType: ErrTypeRender, expected: "RENDER"},
		{name: "unsupported", errType: ErrTypeUnsupported, expected: "UNSUPPORTED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.errType))
		})
	}
}

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name        string
		appError    *AppError
		wantMessage string
	}{
		{
			name:        "error without cause",
			appError:    NewAppValidationError("plate has no wells"),
			wantMessage: "[VALIDATION] plate has no wells",
		},
		{
			name:        "error with cause",
			appError:    NewParsingError("invalid absorbance", fmt.Errorf("strconv: bad")),
			wantMessage: "[PARSING] invalid absorbance: strconv: bad",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMessage, tt.appError.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("permission denied")
	err := NewStorageError("cannot write figure", cause)

	assert.True(t, errors.Is(err, cause))

	var appErr *AppError
	require.True(t, errors.As(fmt.Errorf("wrapped: %w", err), &appErr))
	assert.Equal(t, ErrTypeStorage, appErr.Type)
}

func TestAppError_WithContext(t *testing.T) {
	err := &AppError{Type: ErrTypeParsing, Message: "bad row"}
	err.WithContext("line", 7).WithContext("file", "plate1.csv")

	assert.Equal(t, 7, err.Context["line"])
	assert.Equal(t, "plate1.csv", err.Context["file"])
}

func TestIsType(t *testing.T) {
	notFound := NewNotFoundError("control layout", errors.New("no such file"))
	nested := NewParsingError("plate join failed", notFound)

	assert.True(t, IsType(nested, ErrTypeParsing))
	assert.True(t, IsType(nested, ErrTypeNotFound))
	assert.False(t, IsType(nested, ErrTypeRender))
	assert.False(t, IsType(errors.New("plain"), ErrTypeParsing))
	assert.False(t, IsType(nil, ErrTypeParsing))
}

func TestTypeOf(t *testing.T) {
	assert.Equal(t, ErrTypePlateFormat, TypeOf(NewPlateFormatError(95)))
	assert.Equal(t, ErrorType(""), TypeOf(errors.New("plain")))
}

func TestNewPlateFormatError(t *testing.T) {
	err := NewPlateFormatError(200)

	assert.Contains(t, err.Error(), "200 wells")
	assert.Equal(t, 200, err.Context["wells"])
}

func TestNewUnsupportedFileError(t *testing.T) {
	err := NewUnsupportedFileError("notes.txt")

	assert.Equal(t, ErrTypeUnsupported, err.Type)
	assert.Equal(t, "notes.txt", err.Context["file"])
}
