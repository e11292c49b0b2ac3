package codec

import (
	"github.com/fxamacker/cbor/v2"
)

// CBOROptions tunes the CBOR codec.
type CBOROptions struct {
	// Canonical selects RFC 8949 core deterministic encoding, so equal state
	// always produces equal bytes.
	Canonical bool
	// MaxArrayElements caps decoded arrays and maps (0 = library default).
	// State read back from a shared store is untrusted input.
	MaxArrayElements int
}

// CBOR encodes with fxamacker/cbor. Build it with NewCBOR or MustCBOR; the
// zero value has no modes and panics on use.
type CBOR[V any] struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

var _ Codec[struct{}] = CBOR[struct{}]{}

func NewCBOR[V any](opts CBOROptions) (CBOR[V], error) {
	eo := cbor.PreferredUnsortedEncOptions()
	if opts.Canonical {
		eo = cbor.CoreDetEncOptions()
	}
	em, err := eo.EncMode()
	if err != nil {
		return CBOR[V]{}, err
	}

	do := cbor.DecOptions{}
	if opts.MaxArrayElements > 0 {
		do.MaxArrayElements = opts.MaxArrayElements
		do.MaxMapPairs = opts.MaxArrayElements
	}
	dm, err := do.DecMode()
	if err != nil {
		return CBOR[V]{}, err
	}
	return CBOR[V]{enc: em, dec: dm}, nil
}

// MustCBOR panics when opts are rejected by the library.
func MustCBOR[V any](opts CBOROptions) CBOR[V] {
	c, err := NewCBOR[V](opts)
	if err != nil {
		panic(err)
	}
	return c
}

func (c CBOR[V]) Name() string { return "cbor" }

func (c CBOR[V]) Encode(v V) ([]byte, error) { return c.enc.Marshal(v) }

func (c CBOR[V]) Decode(b []byte) (V, error) {
	var v V
	err := c.dec.Unmarshal(b, &v)
	return v, err
}
