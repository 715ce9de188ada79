package archive

import (
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustCBOR(t testing.TB, v interface{}) []byte {
	t.Helper()
	raw, err := cbor.Marshal(v)
	require.NoError(t, err)
	return raw
}

func TestParseLegacyReference(t *testing.T) {
	raw := mustCBOR(t, []interface{}{"SFrame", "some/relative/path"})
	ref, err := parseReference(raw)
	require.NoError(t, err)
	assert.True(t, ref.legacy)
	assert.Equal(t, "SFrame", ref.tag)
	assert.Equal(t, "some/relative/path", ref.relPath)
}

func TestParseVersionedTagReference(t *testing.T) {
	raw := mustCBOR(t, fullReference(wireTag{Tag: TagSGraph}, "abc-123", 7))
	ref, err := parseReference(raw)
	require.NoError(t, err)
	assert.False(t, ref.legacy)
	assert.False(t, ref.reuse)
	assert.Equal(t, TagSGraph, ref.tag)
	assert.Equal(t, "abc-123", ref.relPath)
	assert.Equal(t, uint64(7), ref.id)
}

func TestParseVersionedDescriptorReference(t *testing.T) {
	wt := wireTag{Desc: descriptor{Module: "ext", Class: "Blob"}}
	raw := mustCBOR(t, fullReference(wt, "def-456", 9))
	ref, err := parseReference(raw)
	require.NoError(t, err)
	assert.True(t, ref.hasDesc)
	assert.Equal(t, descriptor{Module: "ext", Class: "Blob"}, ref.desc)
	assert.Equal(t, uint64(9), ref.id)
}

func TestParseReuseReference(t *testing.T) {
	raw := mustCBOR(t, reuseReference(3))
	ref, err := parseReference(raw)
	require.NoError(t, err)
	assert.True(t, ref.reuse)
	assert.Equal(t, uint64(3), ref.id)
}

func TestParseMalformedReferences(t *testing.T) {
	_, err := parseReference(mustCBOR(t, "not a tuple"))
	require.Error(t, err)

	_, err = parseReference(mustCBOR(t, []interface{}{"only-one"}))
	require.Error(t, err)

	_, err = parseReference(mustCBOR(t, []interface{}{"a", "b", "c", "d"}))
	require.Error(t, err)

	_, err = parseReference(mustCBOR(t, []interface{}{7, "path", 1}))
	require.Error(t, err)
}
