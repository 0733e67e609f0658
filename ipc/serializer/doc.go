// Package serializer provides message serialization capabilities for the
// dIPC system. It defines a common interface and multiple implementations
// for serializing and deserializing envelope values between peers.
//
// The package focuses on:
//   - Providing a consistent interface for different serialization formats
//   - Offering multiple implementations with different performance characteristics
//   - Encoding arbitrary envelope values (string-keyed maps, slices, scalars)
//     without requiring schema knowledge
//
// Key Components:
//
//   - IIPCSerializer: Core interface that all serializer implementations
//     must satisfy.
//
//   - msgpackSerializerImpl: MessagePack implementation, the default wire
//     format of the protocol. Compact binary output, fast, and compatible
//     with MessagePack implementations in other languages, which matters
//     because the peer process is typically not written in Go.
//
//   - jsonSerializerImpl: Implementation using JSON encoding, useful for
//     debugging or interoperability with peers that lack MessagePack
//     support, but with larger payloads and lower performance.
//
//   - gobSerializerImpl: Implementation using Go's built-in gob encoding.
//     Only usable when both peers are Go processes; payload types beyond
//     the pre-registered envelope shapes must be registered with gob by
//     the caller.
//
// Thread Safety:
//
//	All serializer implementations are stateless and safe for concurrent
//	use across multiple goroutines without additional synchronization.
//
// Usage:
//
//	Serializers are typically created once and reused throughout the
//	application:
//
//	  s := serializer.NewMsgpackSerializer()
//	  data, err := s.Serialize(envelope)
//	  // ... send data ...
//	  var v interface{}
//	  err = s.Deserialize(receivedData, &v)
package serializer
