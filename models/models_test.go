package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawRowCell(t *testing.T) {
	row := RawRow{"1", "NABIL"}

	assert.Equal(t, "1", row.Cell(0))
	assert.Equal(t, "NABIL", row.Cell(1))
	assert.Equal(t, "", row.Cell(2))
	assert.Equal(t, "", row.Cell(-1))
	assert.Equal(t, "", RawRow(nil).Cell(0))
}

func TestParseSource(t *testing.T) {
	src, err := ParseSource(" Floor-Sheet ")
	require.NoError(t, err)
	assert.Equal(t, SourceFloorSheet, src)

	_, err = ParseSource("bonds")
	assert.Error(t, err)
}

func TestScrapeRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     ScrapeRequest
		wantErr bool
	}{
		{"unbounded", ScrapeRequest{Source: SourceTodaysPrice}, false},
		{"bounded", ScrapeRequest{Source: SourceFloorSheet, Limit: IntPtr(10), MaxPages: IntPtr(2)}, false},
		{"unknown source", ScrapeRequest{Source: "bonds"}, true},
		{"zero limit", ScrapeRequest{Source: SourceTodaysPrice, Limit: IntPtr(0)}, true},
		{"negative pages", ScrapeRequest{Source: SourceTodaysPrice, MaxPages: IntPtr(-1)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var se *ScrapeError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, ErrCodeInvalidInput, se.Code)
		})
	}
}

func TestScrapeRequestClamp(t *testing.T) {
	req := ScrapeRequest{Source: SourceTodaysPrice, Limit: IntPtr(5000), MaxPages: IntPtr(3)}
	req.Clamp(1000, 20)

	assert.Equal(t, 1000, *req.Limit)
	assert.Equal(t, 3, *req.MaxPages)

	unbounded := ScrapeRequest{Source: SourceTodaysPrice}
	unbounded.Clamp(1000, 20)
	assert.Nil(t, unbounded.Limit)
	assert.Nil(t, unbounded.MaxPages)
}

func TestScrapeErrorUnwrap(t *testing.T) {
	cause := errors.New("net::ERR_CONNECTION_REFUSED")
	err := NewScrapeError(ErrCodeInitialLoad, "table never appeared", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "INITIAL_LOAD_FAILED: table never appeared: net::ERR_CONNECTION_REFUSED", err.Error())
	assert.Equal(t, ErrorResponse{Success: false, Error: "table never appeared: net::ERR_CONNECTION_REFUSED"}, err.ToResponse())
}
