package api

import (
	"encoding/json/v2"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/listenupapp/showcase-server/internal/errors"
	"github.com/listenupapp/showcase-server/internal/store"
)

func TestEnvelopeTransformer_AlwaysIncludesVersion(t *testing.T) {
	tests := []struct {
		name   string
		status string
		input  any
	}{
		{name: "success response", status: "200", input: map[string]string{"key": "value"}},
		{name: "created response", status: "201", input: map[string]string{"id": "123"}},
		{name: "no content response", status: "204", input: nil},
		{name: "bad request error", status: "400", input: errors.New("invalid input")},
		{
			name:   "rate limited with code",
			status: "429",
			input:  &APIError{Code: "RATE_LIMITED", Message: "slow down"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := EnvelopeTransformer(nil, tt.status, tt.input)
			require.NoError(t, err)

			raw, err := json.Marshal(result)
			require.NoError(t, err)

			var envelope map[string]any
			require.NoError(t, json.Unmarshal(raw, &envelope))
			require.Contains(t, envelope, "v")
			assert.Equal(t, float64(EnvelopeVersion), envelope["v"])
		})
	}
}

func TestEnvelopeTransformer_SuccessResponse(t *testing.T) {
	data := map[string]string{"name": "Rookie Cards"}

	result, err := EnvelopeTransformer(nil, "200", data)
	require.NoError(t, err)

	envelope, ok := result.(APIEnvelope)
	require.True(t, ok)
	assert.True(t, envelope.Success)
	assert.Equal(t, data, envelope.Data)
	assert.Empty(t, envelope.Error)
}

func TestEnvelopeTransformer_ErrorResponse(t *testing.T) {
	result, err := EnvelopeTransformer(nil, "400", errors.New("validation failed"))
	require.NoError(t, err)

	envelope, ok := result.(APIEnvelope)
	require.True(t, ok)
	assert.False(t, envelope.Success)
	assert.Nil(t, envelope.Data)
	assert.Equal(t, "validation failed", envelope.Error)
}

func TestEnvelopeTransformer_ErrorWithDetails(t *testing.T) {
	apiErr := &APIError{
		Code:    "CONTENT_FLAGGED",
		Message: "comment looks like spam",
		Details: []string{"links"},
	}

	result, err := EnvelopeTransformer(nil, "422", apiErr)
	require.NoError(t, err)

	envelope, ok := result.(APIErrorEnvelope)
	require.True(t, ok)
	assert.False(t, envelope.Success)
	assert.Equal(t, "CONTENT_FLAGGED", envelope.Code)
	assert.Equal(t, "comment looks like spam", envelope.Message)
	assert.Equal(t, []string{"links"}, envelope.Details)
}

func TestEnvelopeTransformer_PassesEnvelopesThrough(t *testing.T) {
	in := APIEnvelope{Version: EnvelopeVersion, Success: true, Data: "x"}
	out, err := EnvelopeTransformer(nil, "200", in)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestAPIError_FromDomainAndStoreErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "not found", err: domainerrors.NotFound("gone"), status: http.StatusNotFound, code: "NOT_FOUND"},
		{name: "forbidden", err: domainerrors.Forbidden("legacy"), status: http.StatusForbidden, code: "FORBIDDEN"},
		{name: "unavailable", err: domainerrors.Unavailable("down"), status: http.StatusServiceUnavailable, code: "UNAVAILABLE"},
		{name: "store not found", err: store.ErrNotFound, status: http.StatusNotFound, code: "NOT_FOUND"},
		{name: "unknown", err: errors.New("boom"), status: http.StatusInternalServerError, code: "INTERNAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var apiErr *APIError
			require.ErrorAs(t, apiError(tt.err), &apiErr)
			assert.Equal(t, tt.status, apiErr.GetStatus())
			assert.Equal(t, tt.code, apiErr.Code)
		})
	}
	assert.NoError(t, apiError(nil))
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name               string
		xff, realIP, raddr string
		want               string
	}{
		{name: "forwarded first hop", xff: "203.0.113.7, 10.0.0.1", want: "203.0.113.7"},
		{name: "real ip", realIP: "198.51.100.2", raddr: "10.0.0.1:5000", want: "198.51.100.2"},
		{name: "remote addr", raddr: "10.0.0.1:5000", want: "10.0.0.1"},
		{name: "bare remote", raddr: "pipe", want: "pipe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, clientIP(tt.xff, tt.realIP, tt.raddr))
		})
	}
}
