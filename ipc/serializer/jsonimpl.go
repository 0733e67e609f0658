package serializer

import (
	"encoding/json"
)

// NewJSONSerializer creates a new serializer using json encoding
func NewJSONSerializer() IIPCSerializer {
	return &jsonSerializerImpl{}
}

// jsonSerializerImpl implements the IIPCSerializer interface using json encoding
type jsonSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IIPCSerializer)
// --------------------------------------------------------------------------

func (j jsonSerializerImpl) Serialize(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (j jsonSerializerImpl) Deserialize(b []byte, v interface{}) error {
	return json.Unmarshal(b, v)
}
