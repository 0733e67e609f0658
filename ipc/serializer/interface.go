package serializer

// IIPCSerializer is the interface for all message serializers.
// Implementations must be deterministic for a fixed input and must return
// an error (never panic) for values outside their supported model.
type IIPCSerializer interface {
	// Serialize serializes a value into a byte array
	// It returns the serialized byte array and an error if any
	Serialize(v interface{}) ([]byte, error)
	// Deserialize deserializes a byte array into a value
	// It takes a byte array and a pointer to the target as parameters
	// It returns an error if any
	Deserialize(b []byte, v interface{}) error
}
