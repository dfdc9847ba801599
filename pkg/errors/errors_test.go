package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	err := New(ErrorTypeRead, "parse", fs.ErrNotExist).WithPath("downloads/JMdict_e-5-3-2024.xml")

	assert.Equal(t, "parse: read error [downloads/JMdict_e-5-3-2024.xml]: file does not exist", err.Error())

	status := &Error{Type: ErrorTypeHTTPStatus, Op: "fetch", Code: 503}
	assert.Equal(t, "fetch: http_status error (code 503)", status.Error())
}

func TestTypeOfThroughWrapping(t *testing.T) {
	base := New(ErrorTypeDecompress, "fetch", errors.New("gzip: invalid header"))
	wrapped := fmt.Errorf("pipeline: %w", base)

	assert.Equal(t, ErrorTypeDecompress, TypeOf(wrapped))
	assert.True(t, Is(wrapped, ErrorTypeDecompress))
	assert.False(t, Is(wrapped, ErrorTypeNetwork))
	assert.Equal(t, ErrorTypeUnknown, TypeOf(errors.New("plain")))
	assert.False(t, Is(nil, ErrorTypeUnknown))
}

func TestUnwrap(t *testing.T) {
	err := New(ErrorTypeRead, "parse", fs.ErrNotExist)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, 0},
		{"read failure", New(ErrorTypeRead, "parse", fs.ErrNotExist), 1},
		{"parse failure", New(ErrorTypeParse, "parse", errors.New("unexpected EOF")), 1},
		{"untyped failure", errors.New("boom"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}
