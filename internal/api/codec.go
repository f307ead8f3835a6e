// Package api is the wire contract of the account service: request and
// response messages, the gRPC service descriptor, a client stub and the JSON
// codec the messages travel with.
package api

import (
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

// CodecName is the gRPC content-subtype of the JSON codec
// ("application/grpc+json").
const CodecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return CodecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// CallOption selects the JSON codec for a call. Clients created with
// NewAccountServiceClient add it automatically.
func CallOption() grpc.CallOption {
	return grpc.CallContentSubtype(CodecName)
}
