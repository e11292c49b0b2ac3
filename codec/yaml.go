package codec

import "gopkg.in/yaml.v3"

// YAML uses gopkg.in/yaml.v3; handy for state files edited by hand.
// The zero value is ready to use.
type YAML[V any] struct{}

var _ Codec[struct{}] = YAML[struct{}]{}

func (YAML[V]) Name() string                { return "yaml" }
func (YAML[V]) Encode(v V) ([]byte, error) { return yaml.Marshal(v) }
func (YAML[V]) Decode(b []byte) (V, error) {
	var v V
	err := yaml.Unmarshal(b, &v)
	return v, err
}
