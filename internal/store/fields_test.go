package store

import (
	"encoding/json/jsontext"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyFields(t *testing.T) {
	now := time.Date(2026, 5, 4, 3, 2, 1, 0, time.UTC)
	body := jsontext.Value(`{"b":1,"a":{"y":1,"x":2},"tags":["k"]}`)

	out, err := ApplyFields(body, Fields{
		"b":    Increment(-3),
		"tags": ArrayUnion("k", "m"),
		"c":    "new",
		"at":   ServerTimestamp,
	}, now)
	require.NoError(t, err)

	assert.JSONEq(t, `{"b":-2,"a":{"y":1,"x":2},"tags":["k","m"],"c":"new","at":"2026-05-04T03:02:01Z"}`, string(out))
	// Untouched nested objects keep their key order.
	assert.Contains(t, string(out), `"a":{"y":1,"x":2}`)
}

func TestApplyFields_EmptyBody(t *testing.T) {
	out, err := ApplyFields(nil, Fields{"n": Increment(1)}, time.Now())
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":1}`, string(out))
}

func TestApplyFields_RejectsEmptyName(t *testing.T) {
	_, err := ApplyFields(jsontext.Value(`{}`), Fields{"": 1}, time.Now())
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestApplyFields_ArrayRemoveStructuredValues(t *testing.T) {
	body := jsontext.Value(`{"comments":[{"user":"u1","text":"hi"},{"user":"u2","text":"yo"}]}`)

	out, err := ApplyFields(body, Fields{
		"comments": ArrayRemove(map[string]any{"text": "hi", "user": "u1"}),
	}, time.Now())
	require.NoError(t, err)
	assert.JSONEq(t, `{"comments":[{"user":"u2","text":"yo"}]}`, string(out))
}
