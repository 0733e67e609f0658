package serializer

import (
	"bytes"
	"encoding/gob"

	"github.com/ValentinKolb/dIPC/ipc/common"
)

func init() {
	// Register the envelope shapes so interface-typed values round-trip.
	// Additional payload types must be registered by the caller.
	gob.Register(map[string]interface{}{})
	gob.Register([]interface{}{})
	gob.Register(common.Envelope{})
}

// NewGOBSerializer creates a new serializer using Go's binary gob format.
// Only usable when both peers are Go processes.
func NewGOBSerializer() IIPCSerializer {
	return &gobSerializerImpl{}
}

// gobSerializerImpl implements the IIPCSerializer interface using gob encoding
type gobSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IIPCSerializer)
// --------------------------------------------------------------------------

func (g gobSerializerImpl) Serialize(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(&v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g gobSerializerImpl) Deserialize(b []byte, v interface{}) error {
	buf := bytes.NewBuffer(b)
	dec := gob.NewDecoder(buf)
	return dec.Decode(v)
}
