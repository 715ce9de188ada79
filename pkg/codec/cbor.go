package codec

import (
	"encoding"
	"fmt"
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// encMode is the CBOR encoder configured with Core Deterministic
// Encoding (RFC 8949 §4.2): sorted map keys, smallest integer encoding,
// no indefinite-length items.
var encMode cbor.EncMode

// decMode decodes standard CBOR. Integers land as int64 whenever they
// fit, so numeric values survive a round trip with one concrete type.
var decMode cbor.DecMode

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]interface{}(nil)),
		IntDec:         cbor.IntDecConvertSigned,
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

type nodeKind uint8

const (
	kindNil nodeKind = iota
	kindScalar
	kindList
	kindMap
	kindRef
)

// node is the wire shape of one value in the main stream. Exactly one of
// Value, Elems, Pairs is populated depending on Kind; references carry
// the raw hook payload in Value.
type node struct {
	Kind  nodeKind        `cbor:"k"`
	Value cbor.RawMessage `cbor:"v,omitempty"`
	Elems []node          `cbor:"e,omitempty"`
	Pairs []pair          `cbor:"p,omitempty"`
}

type pair struct {
	Key   node `cbor:"k"`
	Value node `cbor:"v"`
}

// Default returns the CBOR-backed codec.
func Default() Codec {
	return cborCodec{}
}

type cborCodec struct{}

func (cborCodec) NewEncoder(w io.Writer, hook Hook) Encoder {
	return &cborEncoder{
		enc:    encMode.NewEncoder(w),
		hook:   hook,
		active: map[uintptr]bool{},
	}
}

func (cborCodec) NewDecoder(r io.Reader, resolver Resolver) Decoder {
	return &cborDecoder{dec: decMode.NewDecoder(r), resolver: resolver}
}

type cborEncoder struct {
	enc  *cbor.Encoder
	hook Hook

	// active holds the containers on the current walk path. The wire
	// format cannot express a value that contains itself, so reentering
	// one is an error rather than unbounded recursion.
	active map[uintptr]bool
}

func (e *cborEncoder) enter(rv reflect.Value) error {
	p := rv.Pointer()
	if p == 0 {
		return nil
	}
	if e.active[p] {
		return fmt.Errorf("value of type %s contains itself", rv.Type())
	}
	e.active[p] = true
	return nil
}

func (e *cborEncoder) leave(rv reflect.Value) {
	if p := rv.Pointer(); p != 0 {
		delete(e.active, p)
	}
}

func (e *cborEncoder) Encode(v interface{}) error {
	n, err := e.walk(v)
	if err != nil {
		return err
	}
	return e.enc.Encode(n)
}

// selfMarshaling types are encoded as scalar leaves rather than walked
// field by field.
func selfMarshaling(v interface{}) bool {
	switch v.(type) {
	case cbor.Marshaler, encoding.BinaryMarshaler, encoding.TextMarshaler:
		return true
	}
	return false
}

func (e *cborEncoder) walk(v interface{}) (node, error) {
	if e.hook != nil {
		ref, ok, err := e.hook(v)
		if err != nil {
			return node{}, err
		}
		if ok {
			raw, err := encMode.Marshal(ref)
			if err != nil {
				return node{}, fmt.Errorf("encoding reference: %v", err)
			}
			return node{Kind: kindRef, Value: raw}, nil
		}
	}
	if v == nil {
		return node{Kind: kindNil}, nil
	}
	if selfMarshaling(v) {
		return e.scalar(v)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Interface:
		if rv.IsNil() {
			return node{Kind: kindNil}, nil
		}
		return e.walk(rv.Elem().Interface())
	case reflect.Ptr:
		if rv.IsNil() {
			return node{Kind: kindNil}, nil
		}
		if err := e.enter(rv); err != nil {
			return node{}, err
		}
		defer e.leave(rv)
		return e.walk(rv.Elem().Interface())
	case reflect.Map:
		if err := e.enter(rv); err != nil {
			return node{}, err
		}
		defer e.leave(rv)
		pairs := make([]pair, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k, err := e.walk(iter.Key().Interface())
			if err != nil {
				return node{}, err
			}
			val, err := e.walk(iter.Value().Interface())
			if err != nil {
				return node{}, err
			}
			pairs = append(pairs, pair{Key: k, Value: val})
		}
		return node{Kind: kindMap, Pairs: pairs}, nil
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return e.scalar(v)
		}
		if rv.Kind() == reflect.Slice {
			if err := e.enter(rv); err != nil {
				return node{}, err
			}
			defer e.leave(rv)
		}
		elems := make([]node, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			n, err := e.walk(rv.Index(i).Interface())
			if err != nil {
				return node{}, err
			}
			elems = append(elems, n)
		}
		return node{Kind: kindList, Elems: elems}, nil
	case reflect.Struct:
		rt := rv.Type()
		pairs := make([]pair, 0, rt.NumField())
		for i := 0; i < rt.NumField(); i++ {
			f := rt.Field(i)
			if f.PkgPath != "" { // unexported
				continue
			}
			val, err := e.walk(rv.Field(i).Interface())
			if err != nil {
				return node{}, err
			}
			key, err := e.scalar(f.Name)
			if err != nil {
				return node{}, err
			}
			pairs = append(pairs, pair{Key: key, Value: val})
		}
		return node{Kind: kindMap, Pairs: pairs}, nil
	default:
		return e.scalar(v)
	}
}

func (e *cborEncoder) scalar(v interface{}) (node, error) {
	raw, err := encMode.Marshal(v)
	if err != nil {
		return node{}, fmt.Errorf("encoding value of type %T: %v", v, err)
	}
	return node{Kind: kindScalar, Value: raw}, nil
}

type cborDecoder struct {
	dec      *cbor.Decoder
	resolver Resolver
}

func (d *cborDecoder) Decode() (interface{}, error) {
	var n node
	if err := d.dec.Decode(&n); err != nil {
		return nil, err
	}
	return d.rebuild(n)
}

func (d *cborDecoder) rebuild(n node) (interface{}, error) {
	switch n.Kind {
	case kindNil:
		return nil, nil
	case kindScalar:
		var v interface{}
		if err := decMode.Unmarshal(n.Value, &v); err != nil {
			return nil, fmt.Errorf("decoding scalar: %v", err)
		}
		return v, nil
	case kindList:
		out := make([]interface{}, 0, len(n.Elems))
		for _, el := range n.Elems {
			v, err := d.rebuild(el)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case kindMap:
		return d.rebuildMap(n.Pairs)
	case kindRef:
		if d.resolver == nil {
			return nil, fmt.Errorf("stream contains an external reference but no resolver is installed")
		}
		return d.resolver(RawRef(n.Value))
	default:
		return nil, fmt.Errorf("unknown node kind %d", n.Kind)
	}
}

// rebuildMap yields map[string]interface{} when every key is a string,
// map[interface{}]interface{} otherwise.
func (d *cborDecoder) rebuildMap(pairs []pair) (interface{}, error) {
	keys := make([]interface{}, 0, len(pairs))
	vals := make([]interface{}, 0, len(pairs))
	allStrings := true
	for _, p := range pairs {
		k, err := d.rebuild(p.Key)
		if err != nil {
			return nil, err
		}
		v, err := d.rebuild(p.Value)
		if err != nil {
			return nil, err
		}
		if _, isString := k.(string); !isString {
			allStrings = false
		}
		keys = append(keys, k)
		vals = append(vals, v)
	}
	if allStrings {
		out := make(map[string]interface{}, len(pairs))
		for i, k := range keys {
			out[k.(string)] = vals[i]
		}
		return out, nil
	}
	out := make(map[interface{}]interface{}, len(pairs))
	for i, k := range keys {
		if k != nil && !reflect.TypeOf(k).Comparable() {
			return nil, fmt.Errorf("decoded map key of type %T is not comparable", k)
		}
		out[k] = vals[i]
	}
	return out, nil
}
