package archive

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/glarchive/glarchive/pkg/codec"
)

// Reference tuple wire shapes, all CBOR arrays:
//
//	legacy:    [tag, relpath]
//	versioned: [tag-or-descriptor, relpath, identity]
//	reuse:     [null, null, identity]
//
// where tag-or-descriptor is a string for built-in tags and a
// [module, class] pair for extension types.

func fullReference(wt wireTag, relPath string, id uint64) []interface{} {
	var head interface{}
	if wt.Tag != "" {
		head = wt.Tag
	} else {
		head = []string{wt.Desc.Module, wt.Desc.Class}
	}
	return []interface{}{head, relPath, id}
}

func reuseReference(id uint64) []interface{} {
	return []interface{}{nil, nil, id}
}

// refTuple is a parsed reference tuple.
type refTuple struct {
	legacy  bool
	reuse   bool
	tag     string
	desc    descriptor
	hasDesc bool
	relPath string
	id      uint64
}

func parseReference(raw codec.RawRef) (refTuple, error) {
	var elems []cbor.RawMessage
	if err := cbor.Unmarshal(raw, &elems); err != nil {
		return refTuple{}, fmt.Errorf("reference is not a tuple: %v", err)
	}

	var t refTuple
	switch len(elems) {
	case 2:
		t.legacy = true
		if err := cbor.Unmarshal(elems[0], &t.tag); err != nil {
			return refTuple{}, fmt.Errorf("legacy reference type tag: %v", err)
		}
		if err := cbor.Unmarshal(elems[1], &t.relPath); err != nil {
			return refTuple{}, fmt.Errorf("legacy reference path: %v", err)
		}
		return t, nil
	case 3:
		if err := cbor.Unmarshal(elems[2], &t.id); err != nil {
			return refTuple{}, fmt.Errorf("reference identity: %v", err)
		}
		var isNil interface{}
		if err := cbor.Unmarshal(elems[0], &isNil); err == nil && isNil == nil {
			t.reuse = true
			return t, nil
		}
		if err := cbor.Unmarshal(elems[1], &t.relPath); err != nil {
			return refTuple{}, fmt.Errorf("reference path: %v", err)
		}
		if err := cbor.Unmarshal(elems[0], &t.tag); err == nil {
			return t, nil
		}
		var pair []string
		if err := cbor.Unmarshal(elems[0], &pair); err == nil && len(pair) == 2 {
			t.hasDesc = true
			t.desc = descriptor{Module: pair[0], Class: pair[1]}
			return t, nil
		}
		return refTuple{}, fmt.Errorf("reference head is neither a tag nor a descriptor")
	default:
		return refTuple{}, fmt.Errorf("reference tuple has %d elements", len(elems))
	}
}
