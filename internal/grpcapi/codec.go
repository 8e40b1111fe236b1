package grpcapi

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// JSONCodec serializes the hand-written wire messages in sncfgpb /
// snp4pb. The canonical message shapes are documented in proto/
// sn_cfg.proto and proto/sn_p4.proto; until a protoc run produces
// real protobuf-backed types, both servers force this codec so the
// full service surface is servable end to end. Clients select it with
// the "json" content-subtype.
type JSONCodec struct{}

// Name implements encoding.Codec.
func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (JSONCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func init() {
	encoding.RegisterCodec(JSONCodec{})
}
