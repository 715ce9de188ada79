package archive

import (
	"go.uber.org/zap"

	"github.com/glarchive/glarchive/pkg/codec"
	"github.com/glarchive/glarchive/pkg/storage"
)

type sessionOptions struct {
	logger   *zap.Logger
	cdc      codec.Codec
	registry *Registry
	store    storage.Store
}

// Option is a functor to pass optional parameters to a Serializer or
// Deserializer.
type Option func(*sessionOptions)

// Logger specifies a logger for this session
func Logger(logger *zap.Logger) Option {
	return func(o *sessionOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithCodec substitutes the generic codec implementation
func WithCodec(c codec.Codec) Option {
	return func(o *sessionOptions) {
		if c != nil {
			o.cdc = c
		}
	}
}

// WithRegistry installs the loader registry for this session. Reading an
// archive that carries external references requires a registry holding
// the matching loaders.
func WithRegistry(r *Registry) Option {
	return func(o *sessionOptions) {
		if r != nil {
			o.registry = r
		}
	}
}

// WithStore overrides the storage backend client a remote target would
// otherwise be given by default. Lets tests and callers with custom
// credentials inject their own store.
func WithStore(s storage.Store) Option {
	return func(o *sessionOptions) {
		o.store = s
	}
}

func newSessionOptions(opts []Option) sessionOptions {
	o := sessionOptions{
		logger:   zap.NewNop(),
		cdc:      codec.Default(),
		registry: NewRegistry(),
	}
	for _, apply := range opts {
		apply(&o)
	}
	return o
}
