package serializer

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"
)

// NewMsgpackSerializer creates a new serializer using MessagePack encoding.
// This is the default wire format of the protocol.
func NewMsgpackSerializer() IIPCSerializer {
	return &msgpackSerializerImpl{}
}

// msgpackSerializerImpl implements the IIPCSerializer interface using
// MessagePack encoding
type msgpackSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IIPCSerializer)
// --------------------------------------------------------------------------

func (m msgpackSerializerImpl) Serialize(v interface{}) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (m msgpackSerializerImpl) Deserialize(b []byte, v interface{}) error {
	dec := msgpack.NewDecoder(bytes.NewReader(b))
	// Decode untagged maps as map[string]interface{} so envelopes come out
	// string-keyed regardless of what the peer's encoder emitted.
	dec.SetCustomStructTag("msgpack")
	dec.SetMapDecoder(func(d *msgpack.Decoder) (interface{}, error) {
		return d.DecodeMap()
	})
	return dec.Decode(v)
}
