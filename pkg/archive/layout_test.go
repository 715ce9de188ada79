package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glarchive/glarchive/pkg/codec"
	"github.com/glarchive/glarchive/pkg/errors"
)

// legacyBundle builds a zip bundle the way early releases did: a marker
// entry naming the main stream, the main stream itself, side files, and
// the version in the container comment.
func legacyBundle(t testing.TB, path, comment string, entries map[string][]byte) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	if comment != "" {
		require.NoError(t, zw.SetComment(comment))
	}
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

// legacyStream encodes values whose blob nodes carry identity-less
// 2-element reference tuples, the shape written before versioned
// archives.
func legacyStream(t testing.TB, graph interface{}, tag, relPath string) []byte {
	t.Helper()
	tmp, err := os.CreateTemp(t.TempDir(), "stream")
	require.NoError(t, err)
	hook := func(v interface{}) (interface{}, bool, error) {
		if _, ok := v.(*blob); ok {
			return []interface{}{tag, relPath}, true, nil
		}
		return nil, false, nil
	}
	enc := codec.Default().NewEncoder(tmp, hook)
	require.NoError(t, enc.Encode(graph))
	require.NoError(t, tmp.Close())
	data, err := os.ReadFile(tmp.Name())
	require.NoError(t, err)
	return data
}

func TestLegacyBundleRoundTrip(t *testing.T) {
	b := &blob{payload: "legacy payload"}
	stream := legacyStream(t, []interface{}{b, b}, TagModel, "side-1")

	bundle := filepath.Join(t.TempDir(), "old-archive")
	legacyBundle(t, bundle, CurrentVersion, map[string][]byte{
		legacyMarkerEntry:  []byte(MainStreamFileName),
		MainStreamFileName: stream,
		"side-1":           []byte("legacy payload"),
	})

	loads := 0
	r := NewRegistry()
	require.NoError(t, r.Register(TagModel, nil, func(path string) (interface{}, error) {
		loads++
		return loadBlob(path)
	}))

	d, err := NewDeserializer(context.Background(), bundle, WithRegistry(r))
	require.NoError(t, err)
	defer d.Close()

	info, err := d.Describe()
	require.NoError(t, err)
	assert.Equal(t, ModeLegacyBundle, info.Mode)

	out, err := d.Load()
	require.NoError(t, err)
	list := out.([]interface{})
	require.Len(t, list, 2)

	// identity-less references are never memoized: two independent
	// instances, two loader invocations
	assert.Equal(t, 2, loads)
	assert.Equal(t, "legacy payload", list[0].(*blob).payload)
	assert.Equal(t, "legacy payload", list[1].(*blob).payload)
	assert.NotSame(t, list[0], list[1])
}

func TestLegacyBundleWithoutComment(t *testing.T) {
	stream := legacyStream(t, "just a value", TagModel, "unused")
	bundle := filepath.Join(t.TempDir(), "ancient")
	legacyBundle(t, bundle, "", map[string][]byte{
		legacyMarkerEntry:  []byte(MainStreamFileName),
		MainStreamFileName: stream,
	})

	d, err := NewDeserializer(context.Background(), bundle)
	require.NoError(t, err)
	defer d.Close()

	out, err := d.Load()
	require.NoError(t, err)
	assert.Equal(t, "just a value", out)
}

func TestLegacyBundleUnsupportedComment(t *testing.T) {
	bundle := filepath.Join(t.TempDir(), "future")
	legacyBundle(t, bundle, "3.0", map[string][]byte{
		legacyMarkerEntry:  []byte(MainStreamFileName),
		MainStreamFileName: {0x00},
	})

	_, err := NewDeserializer(context.Background(), bundle)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedVersion))
}

func TestZipWithoutMarkerFails(t *testing.T) {
	bundle := filepath.Join(t.TempDir(), "not-an-archive")
	legacyBundle(t, bundle, "", map[string][]byte{
		"random-entry": []byte("data"),
	})

	_, err := NewDeserializer(context.Background(), bundle)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConstruction))
}

func TestPlainStream(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain")
	f, err := os.Create(path)
	require.NoError(t, err)
	enc := codec.Default().NewEncoder(f, nil)
	require.NoError(t, enc.Encode(map[string]interface{}{"k": "v"}))
	require.NoError(t, f.Close())

	d, err := NewDeserializer(context.Background(), path)
	require.NoError(t, err)
	defer d.Close()

	info, err := d.Describe()
	require.NoError(t, err)
	assert.Equal(t, ModePlainStream, info.Mode)
	assert.Empty(t, info.SideArtifacts)

	out, err := d.Load()
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"k": "v"}, out)
}

func TestDirectoryMissingMainStream(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, VersionFileName), []byte(CurrentVersion), 0600))

	_, err := NewDeserializer(context.Background(), dir)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConstruction))
}

func TestMissingSourceFails(t *testing.T) {
	_, err := NewDeserializer(context.Background(), filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConstruction))
}
