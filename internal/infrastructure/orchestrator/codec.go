package orchestrator

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

const codecName = "chimera-json"

// jsonCodec lets the orchestrator client and server exchange the plain
// structs in messages.go over grpc's framing and streaming machinery
// without a protoc-generated protobuf codec.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return codecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
