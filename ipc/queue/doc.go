// Package queue provides the typed message queue of the dIPC system: a
// thin layer pairing a framed transport with a pluggable serializer.
//
// Put encodes a value and sends it as a single frame; Get receives a frame
// and decodes it. Both operations come in a blocking and a best-effort
// timed variant, where the timed variant inherits the weak timeout
// contract of the underlying transport.
//
// Serialization failures on Put are reported as a
// common.SerializationError naming the offending value's type.
// Deserialization failures on Get propagate as-is: protocol corruption is
// fatal to that call, not silently recovered.
package queue
