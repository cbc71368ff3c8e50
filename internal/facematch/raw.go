package facematch

import (
	"fmt"
	"slices"
	"strings"
)

// RawKind identifies which representation a RawEmbedding carries.
type RawKind int

const (
	// KindNull means no embedding was stored.
	KindNull RawKind = iota
	// KindEncoded is JSON text: an array, an index->value object, or a JSON string wrapping either.
	KindEncoded
	// KindMapping is an index->value map keyed by decimal indices.
	KindMapping
	// KindValues is an already numeric sequence.
	KindValues
)

func (k RawKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindEncoded:
		return "encoded"
	case KindMapping:
		return "mapping"
	case KindValues:
		return "values"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// RawEmbedding is an embedding as persisted, before validation.
// Exactly one representation is set, selected by Kind.
type RawEmbedding struct {
	kind    RawKind
	encoded string
	mapping map[string]float64
	values  []float32
}

// NullEmbedding returns a raw embedding for a record with nothing stored.
func NullEmbedding() RawEmbedding {
	return RawEmbedding{kind: KindNull}
}

// EncodedEmbedding wraps JSON text read from storage.
func EncodedEmbedding(text string) RawEmbedding {
	return RawEmbedding{kind: KindEncoded, encoded: text}
}

// MappingEmbedding wraps an index->value map. A nil map is treated as null.
func MappingEmbedding(m map[string]float64) RawEmbedding {
	if m == nil {
		return NullEmbedding()
	}
	return RawEmbedding{kind: KindMapping, mapping: m}
}

// ValuesEmbedding wraps a copy of a numeric sequence. A nil slice is treated as null.
func ValuesEmbedding(v []float32) RawEmbedding {
	if v == nil {
		return NullEmbedding()
	}
	return RawEmbedding{kind: KindValues, values: slices.Clone(v)}
}

// Kind returns the representation carried by r.
func (r RawEmbedding) Kind() RawKind {
	return r.kind
}

// Values returns a copy of the numeric sequence when r is KindValues.
func (r RawEmbedding) Values() ([]float32, bool) {
	if r.kind != KindValues {
		return nil, false
	}
	return slices.Clone(r.values), true
}

// String summarizes r for logs without dumping the whole vector.
func (r RawEmbedding) String() string {
	switch r.kind {
	case KindEncoded:
		text := strings.TrimSpace(r.encoded)
		if len(text) > 32 {
			text = text[:32] + "..."
		}
		return fmt.Sprintf("encoded(%d bytes: %s)", len(r.encoded), text)
	case KindMapping:
		return fmt.Sprintf("mapping(%d keys)", len(r.mapping))
	case KindValues:
		return fmt.Sprintf("values(%d)", len(r.values))
	default:
		return r.kind.String()
	}
}
