package vision

import (
	"errors"
	"fmt"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepairJSONPassthrough(t *testing.T) {
	in := `{"valid":true,"employees":[]}`
	out, err := RepairJSON(in)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestRepairJSONStripsProse(t *testing.T) {
	in := "Here is the extracted data:\n```json\n{\"valid\": true, \"confidence\": 0.9}\n```\nLet me know if you need anything else."
	out, err := RepairJSON(in)
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, DecodeJSON(out, &payload))
	assert.Equal(t, true, payload["valid"])
}

func TestRepairJSONNoObject(t *testing.T) {
	_, err := RepairJSON("I could not read the sheet.")
	assert.Error(t, err)
}

func TestRepairJSONMalformedObject(t *testing.T) {
	_, err := RepairJSON(`{"valid": tru`)
	assert.Error(t, err)
}

func TestDecodeJSONNestedBraces(t *testing.T) {
	in := `The result: {"employees": [{"NAME": "John Smith"}], "valid": true} done`
	var payload struct {
		Employees []map[string]string `json:"employees"`
		Valid     bool                `json:"valid"`
	}
	require.NoError(t, DecodeJSON(in, &payload))
	assert.True(t, payload.Valid)
	assert.Equal(t, "John Smith", payload.Employees[0]["NAME"])
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "deadline reached" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"net timeout", timeoutErr{}, true},
		{"conn reset", syscall.ECONNRESET, true},
		{"conn refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), true},
		{"io timeout string", errors.New("read tcp: i/o timeout"), true},
		{"deadline string", errors.New("context deadline exceeded"), true},
		{"permanent", errors.New("invalid api key"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestTransientStatuses(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504, 529} {
		assert.True(t, isTransientStatus(code), "status %d", code)
	}
	for _, code := range []int{200, 400, 401, 403, 404, 413} {
		assert.False(t, isTransientStatus(code), "status %d", code)
	}
}

func TestBackoffDoublesAndCaps(t *testing.T) {
	assert.Equal(t, 2*time.Second, backoff(1))
	assert.Equal(t, 4*time.Second, backoff(2))
	assert.Equal(t, 30*time.Second, backoff(10))
}

func TestMediaTypeFor(t *testing.T) {
	assert.Equal(t, "image/png", mediaTypeFor("/a/sheet.PNG"))
	assert.Equal(t, "image/webp", mediaTypeFor("sheet.webp"))
	assert.Equal(t, "image/jpeg", mediaTypeFor("sheet.jpg"))
	assert.Equal(t, "image/jpeg", mediaTypeFor("sheet"))
}

func TestEstimateCost(t *testing.T) {
	u := TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}
	assert.InDelta(t, 18.0, u.EstimateCost("claude-sonnet-4-5-20250929"), 0.001)
	assert.Equal(t, 0.0, u.EstimateCost("unknown-model"))
}
