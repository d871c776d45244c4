package enginepb

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// CodecName подтип content-type, под которым ходят сообщения движка
const CodecName = "json"

func init() {
	encoding.RegisterCodec(Codec{})
}

// Codec кодирует сообщения движка в JSON вместо protobuf
type Codec struct{}

func (Codec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (Codec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (Codec) Name() string {
	return CodecName
}
