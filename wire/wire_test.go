package wire

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	require.Equal(t, KindNotification, (&Frame{Method: "Target.targetCreated", Params: json.RawMessage(`{}`)}).Classify())
	require.Equal(t, KindResponse, (&Frame{ID: 1, Result: json.RawMessage(`{}`)}).Classify())
	require.Equal(t, KindResponse, (&Frame{ID: 1, Error: &Error{Code: -1, Message: "boom"}}).Classify())
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	f := NewRequest(7, "Page.navigate", json.RawMessage(`{"url":"about:blank"}`), "sess1")
	raw, err := Encode(f)
	require.NoError(t, err)

	got, err := Decode(raw)
	require.NoError(t, err)
	require.Equal(t, f.ID, got.ID)
	require.Equal(t, f.Method, got.Method)
	require.Equal(t, f.SessionID, got.SessionID)
	require.JSONEq(t, string(f.Params), string(got.Params))
}

func TestDecodeMalformed(t *testing.T) {
	_, err := Decode([]byte("not json"))
	require.Error(t, err)
}

func TestNextIDUnique(t *testing.T) {
	seen := map[uint64]bool{}
	for i := 0; i < 1000; i++ {
		id := NextID()
		require.False(t, seen[id], "id %d reused", id)
		seen[id] = true
	}
}

func TestIDAllocatorStartsAtOne(t *testing.T) {
	var a IDAllocator
	require.Equal(t, uint64(1), a.Next())
	require.Equal(t, uint64(2), a.Next())
}
