// Package codec converts persisted collaborator state to and from bytes.
package codec

// Codec encodes/decodes values V to []byte for storage.
// Name identifies the format inside stored envelopes so a reader configured
// with a different codec rejects the payload instead of misparsing it.
type Codec[V any] interface {
	Name() string
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
