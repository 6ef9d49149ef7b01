package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaultSchema(t *testing.T) {
	cat, err := LoadDefault()
	require.NoError(t, err)
	require.NotEmpty(t, cat.Domains)
	require.Contains(t, cat.Commands, "Target.getTargets")
	require.Contains(t, cat.Events, "Target.targetCreated")
}

func TestCommandEncodeMissingRequiredParam(t *testing.T) {
	cat, err := LoadDefault()
	require.NoError(t, err)
	cmd := cat.Commands["Target.attachToTarget"]
	_, err = cmd.Encode(map[string]interface{}{})
	require.Error(t, err)
}

func TestCommandDecodeSingle(t *testing.T) {
	cat, err := LoadDefault()
	require.NoError(t, err)
	cmd := cat.Commands["Target.createTarget"]
	require.Equal(t, ReturnSingle, cmd.Kind)

	res, err := cmd.Decode(json.RawMessage(`{"targetId":"abc"}`))
	require.NoError(t, err)
	var id string
	require.NoError(t, res.Single(&id))
	require.Equal(t, "abc", id)
}

func TestCommandDecodeRejectsNonObject(t *testing.T) {
	cat, err := LoadDefault()
	require.NoError(t, err)
	cmd := cat.Commands["Target.createTarget"]
	_, err = cmd.Decode(json.RawMessage(`"not-an-object"`))
	require.Error(t, err)
}

func TestEventDecode(t *testing.T) {
	cat, err := LoadDefault()
	require.NoError(t, err)
	evt := cat.Events["Target.targetDestroyed"]
	fields, err := evt.Decode(json.RawMessage(`{"targetId":"t1"}`))
	require.NoError(t, err)
	require.Equal(t, `"t1"`, string(fields["targetId"]))
}

func TestEscapeGoNameReserved(t *testing.T) {
	require.Equal(t, "Type_", escapeGoName("type"))
	require.Equal(t, "Enable", escapeGoName("enable"))
}

func TestRegistryIsSingleton(t *testing.T) {
	cat1, err := Registry()
	require.NoError(t, err)
	cat2, err := Registry()
	require.NoError(t, err)
	require.Same(t, cat1, cat2)
}

func TestLookupUnknownMethod(t *testing.T) {
	_, err := LookupCommand("Nonexistent.method")
	require.Error(t, err)
	_, err = LookupEvent("Nonexistent.event")
	require.Error(t, err)
}
