package serializer

import (
	"testing"

	"github.com/ValentinKolb/dIPC/ipc/common"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() IIPCSerializer{
	"Msgpack": NewMsgpackSerializer,
	"JSON":    NewJSONSerializer,
	"GOB":     NewGOBSerializer,
}

// TestEnvelopeRoundTrip tests that command, result and error envelopes
// survive a round trip through each codec and come back string-keyed.
func TestEnvelopeRoundTrip(t *testing.T) {
	envelopes := []common.Envelope{
		common.NewCommandEnvelope("ping", nil, ""),
		common.NewCommandEnvelope("add", map[string]interface{}{"a": int64(1), "b": int64(2)}, "go-1"),
		common.NewResultEnvelope("pong", "py-7"),
		common.NewErrorEnvelope("boom", "trace"),
	}

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for i, env := range envelopes {
				data, err := serializer.Serialize(env)
				if err != nil {
					t.Errorf("failed to serialize envelope %d: %v", i, err)
					continue
				}

				var decoded interface{}
				if err := serializer.Deserialize(data, &decoded); err != nil {
					t.Errorf("failed to deserialize envelope %d: %v", i, err)
					continue
				}

				result, ok := common.FromValue(decoded)
				if !ok {
					t.Errorf("envelope %d decoded to %T, expected a string-keyed map", i, decoded)
					continue
				}

				// Key sets must match; values may change numeric width in
				// transit, so compare them as strings of their fields.
				if len(result) != len(env) {
					t.Errorf("envelope %d key count mismatch: sent %v, got %v", i, env, result)
				}
				for k := range env {
					if _, present := result[k]; !present {
						t.Errorf("envelope %d lost key %q: %v", i, k, result)
					}
				}
			}
		})
	}
}

// TestCommandAccessors tests that the envelope accessors survive decoding:
// the command name and request id must come back as strings.
func TestCommandAccessors(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			env := common.NewCommandEnvelope("slow_echo", map[string]interface{}{"message": "hi"}, "go-42")
			data, err := serializer.Serialize(env)
			if err != nil {
				t.Fatalf("serialize failed: %v", err)
			}

			var decoded interface{}
			if err := serializer.Deserialize(data, &decoded); err != nil {
				t.Fatalf("deserialize failed: %v", err)
			}

			result, ok := common.FromValue(decoded)
			if !ok {
				t.Fatalf("decoded to %T, expected a map", decoded)
			}

			if command, ok := result.Command(); !ok || command != "slow_echo" {
				t.Errorf("command accessor returned %q, %v", command, ok)
			}
			if requestID, ok := result.RequestID(); !ok || requestID != "go-42" {
				t.Errorf("request id accessor returned %q, %v", requestID, ok)
			}
		})
	}
}

// TestMsgpackStructTags tests that the msgpack codec honors field tags when
// binding maps to structs, which the auto-exposure layer relies on.
func TestMsgpackStructTags(t *testing.T) {
	type args struct {
		A       int    `msgpack:"a"`
		B       int    `msgpack:"b"`
		Comment string `msgpack:"comment,omitempty"`
	}

	serializer := NewMsgpackSerializer()

	data, err := serializer.Serialize(map[string]interface{}{"a": 3, "b": 4})
	if err != nil {
		t.Fatalf("serialize failed: %v", err)
	}

	var decoded args
	if err := serializer.Deserialize(data, &decoded); err != nil {
		t.Fatalf("deserialize failed: %v", err)
	}
	if decoded.A != 3 || decoded.B != 4 {
		t.Errorf("expected a=3 b=4, got %+v", decoded)
	}
	if decoded.Comment != "" {
		t.Errorf("expected empty optional field, got %q", decoded.Comment)
	}
}

// TestDeserializeInvalidData tests that corrupt input surfaces as an error
// instead of a partial value.
func TestDeserializeInvalidData(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			var decoded map[string]interface{}
			if err := serializer.Deserialize([]byte{0xc1, 0xff, 0x00}, &decoded); err == nil {
				t.Errorf("expected an error for invalid input")
			}
		})
	}
}
