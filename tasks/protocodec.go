package tasks

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/unkn0wn-root/revcache/codec"
)

// ProtoCodec stores State as a google.protobuf.Struct, so state written by
// this package can be read by any protobuf consumer without generated code.
type ProtoCodec struct {
	pb codec.Protobuf[*structpb.Struct]
}

var _ codec.Codec[State] = ProtoCodec{}

func NewProtoCodec() ProtoCodec {
	return ProtoCodec{pb: codec.NewProtobuf(func() *structpb.Struct { return &structpb.Struct{} })}
}

func (ProtoCodec) Name() string { return "protobuf-struct" }

func (c ProtoCodec) Encode(st State) ([]byte, error) {
	m := make(map[string]any, len(Phases))
	for _, p := range Phases {
		list := make([]any, 0, len(st.Tasks(p)))
		for _, t := range st.Tasks(p) {
			list = append(list, map[string]any{"project_path": t.ProjectPath, "goal": t.Goal})
		}
		m[p.String()] = list
	}
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, err
	}
	return c.pb.Encode(s)
}

func (c ProtoCodec) Decode(b []byte) (State, error) {
	s, err := c.pb.Decode(b)
	if err != nil {
		return State{}, err
	}
	var st State
	for _, p := range Phases {
		v, ok := s.GetFields()[p.String()]
		if !ok {
			continue
		}
		list := v.GetListValue()
		if list == nil {
			return State{}, fmt.Errorf("tasks: phase %s is not a list", p)
		}
		var ts []Task
		for _, item := range list.GetValues() {
			obj := item.GetStructValue()
			if obj == nil {
				return State{}, fmt.Errorf("tasks: phase %s holds a non-object entry", p)
			}
			f := obj.GetFields()
			ts = append(ts, Task{
				ProjectPath: f["project_path"].GetStringValue(),
				Goal:        f["goal"].GetStringValue(),
			})
		}
		st.set(p, ts)
	}
	return st, nil
}
