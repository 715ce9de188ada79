package archive

import (
	"fmt"
	"reflect"
)

// Archivable is the save half of the externally-archivable capability: an
// object that knows how to serialize itself to its own file. The load
// half is a LoaderFunc registered for the object's concrete type. Both
// must be present for an object to be archived by reference; otherwise it
// is encoded inline by the generic codec.
//
// Identity is judged by interface equality, so pointer types are the
// intended carrier: distinct instances stay distinct. Comparable value
// types that compare equal share one identity and one side file, and
// non-comparable value types are saved once per appearance.
type Archivable interface {
	SaveArchive(path string) error
}

// LoaderFunc reconstructs an object from the absolute staged path its
// save operation wrote to.
type LoaderFunc func(path string) (interface{}, error)

// Built-in type tags with fixed dispatch, kept for compatibility with
// historical archives. The loaders themselves live with the types; seed
// a Registry with them before reading such archives.
const (
	TagSFrame = "SFrame"
	TagSGraph = "SGraph"
	TagSArray = "SArray"
	TagModel  = "Model"
)

type descriptor struct {
	Module string
	Class  string
}

// wireTag is how a registered type is named on the wire: a built-in tag,
// or a (module, class) descriptor.
type wireTag struct {
	Tag  string
	Desc descriptor
}

// Registry maps type tags and class descriptors to loaders, and concrete
// Go types to the tag written on the wire. It replaces dynamic lookup by
// class name: every loader is registered explicitly, and a Registry is
// passed to the Deserializer at construction, so there is no global
// mutable loader state.
type Registry struct {
	byTag  map[string]LoaderFunc
	byDesc map[descriptor]LoaderFunc
	tags   map[reflect.Type]wireTag
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byTag:  map[string]LoaderFunc{},
		byDesc: map[descriptor]LoaderFunc{},
		tags:   map[reflect.Type]wireTag{},
	}
}

// Register binds a built-in style type tag to a loader. The prototype
// fixes the concrete type written under this tag; pass a value of the
// same type the loader returns. A nil prototype registers the loader for
// reading only.
func (r *Registry) Register(tag string, prototype interface{}, loader LoaderFunc) error {
	if tag == "" {
		return fmt.Errorf("registry: empty tag")
	}
	if _, dup := r.byTag[tag]; dup {
		return fmt.Errorf("registry: tag %q already registered", tag)
	}
	r.byTag[tag] = loader
	if prototype != nil {
		r.tags[reflect.TypeOf(prototype)] = wireTag{Tag: tag}
	}
	return nil
}

// RegisterType binds a (module, class) descriptor to a loader, the shape
// used for extension types outside the built-in table.
func (r *Registry) RegisterType(module, class string, prototype interface{}, loader LoaderFunc) error {
	if module == "" || class == "" {
		return fmt.Errorf("registry: empty descriptor")
	}
	d := descriptor{Module: module, Class: class}
	if _, dup := r.byDesc[d]; dup {
		return fmt.Errorf("registry: descriptor %s.%s already registered", module, class)
	}
	r.byDesc[d] = loader
	if prototype != nil {
		r.tags[reflect.TypeOf(prototype)] = wireTag{Desc: d}
	}
	return nil
}

// tagFor reports how obj is named on the wire, if its type is registered.
func (r *Registry) tagFor(obj interface{}) (wireTag, bool) {
	if r == nil || obj == nil {
		return wireTag{}, false
	}
	wt, ok := r.tags[reflect.TypeOf(obj)]
	return wt, ok
}

func (r *Registry) loaderForTag(tag string) (LoaderFunc, bool) {
	if r == nil {
		return nil, false
	}
	l, ok := r.byTag[tag]
	return l, ok
}

func (r *Registry) loaderForDescriptor(d descriptor) (LoaderFunc, bool) {
	if r == nil {
		return nil, false
	}
	l, ok := r.byDesc[d]
	return l, ok
}
