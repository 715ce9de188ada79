// Package codec defines the pluggable generic codec driven by the archive
// serializer and deserializer.
//
// A Codec walks arbitrary Go values. During encoding a Hook is consulted
// for every node and may substitute an external reference for the value;
// during decoding a Resolver reconstructs the value such a reference stands
// for. The archival protocol layers on these two interception points and
// stays independent of the wire format underneath.
package codec

import (
	"io"

	"github.com/fxamacker/cbor/v2"
)

// RawRef is the wire form of a reference produced by a Hook, kept opaque
// to the codec. Raw CBOR bytes.
type RawRef = cbor.RawMessage

// Hook may substitute a reference for a value during encoding.
//
// It returns the reference to store in place of the value and ok=true, or
// ok=false to let the codec encode the value inline.
type Hook func(v interface{}) (ref interface{}, ok bool, err error)

// Resolver reconstructs the value a reference stands for during decoding.
type Resolver func(ref RawRef) (interface{}, error)

// Encoder writes one top-level value per Encode call onto its stream.
type Encoder interface {
	Encode(v interface{}) error
}

// Decoder reads one top-level value per Decode call from its stream.
// Decode returns io.EOF once the stream is exhausted.
type Decoder interface {
	Decode() (interface{}, error)
}

// Codec builds encoders and decoders bound to a stream and an
// interception point.
type Codec interface {
	NewEncoder(w io.Writer, hook Hook) Encoder
	NewDecoder(r io.Reader, resolver Resolver) Decoder
}
