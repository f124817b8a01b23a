package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Protobuf clients send a google.protobuf.Struct whose field names match the
// JSON bodies, so conversion goes through the canonical JSON mapping and the
// same struct tags serve both encodings.

// readStruct decodes a protobuf Struct body into dst.
func readStruct(r *http.Request, dst any) error {
	var msg structpb.Struct
	if err := readProto(r, &msg); err != nil {
		return err
	}
	raw, err := protojson.Marshal(&msg)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// toStruct converts a JSON-tagged response value to a protobuf Struct.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var msg structpb.Struct
	if err := protojson.Unmarshal(raw, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
