package archive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryTagLookup(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(TagSFrame, &blob{}, loadBlob))

	wt, ok := r.tagFor(&blob{})
	require.True(t, ok)
	assert.Equal(t, TagSFrame, wt.Tag)

	_, ok = r.tagFor("not registered")
	assert.False(t, ok)
	_, ok = r.tagFor(nil)
	assert.False(t, ok)

	loader, ok := r.loaderForTag(TagSFrame)
	require.True(t, ok)
	require.NotNil(t, loader)
	_, ok = r.loaderForTag(TagSGraph)
	assert.False(t, ok)
}

func TestRegistryDescriptorLookup(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.RegisterType("ext", "Blob", &blob{}, loadBlob))

	wt, ok := r.tagFor(&blob{})
	require.True(t, ok)
	assert.Empty(t, wt.Tag)
	assert.Equal(t, descriptor{Module: "ext", Class: "Blob"}, wt.Desc)

	_, ok = r.loaderForDescriptor(descriptor{Module: "ext", Class: "Blob"})
	assert.True(t, ok)
	_, ok = r.loaderForDescriptor(descriptor{Module: "ext", Class: "Other"})
	assert.False(t, ok)
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(TagModel, nil, loadBlob))
	require.Error(t, r.Register(TagModel, nil, loadBlob))
	require.Error(t, r.Register("", nil, loadBlob))

	require.NoError(t, r.RegisterType("ext", "Blob", nil, loadBlob))
	require.Error(t, r.RegisterType("ext", "Blob", nil, loadBlob))
	require.Error(t, r.RegisterType("", "Blob", nil, loadBlob))
}

func TestNilRegistryLookups(t *testing.T) {
	var r *Registry
	_, ok := r.tagFor(&blob{})
	assert.False(t, ok)
	_, ok = r.loaderForTag(TagModel)
	assert.False(t, ok)
	_, ok = r.loaderForDescriptor(descriptor{Module: "m", Class: "c"})
	assert.False(t, ok)
}
