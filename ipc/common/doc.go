// Package common provides the shared building blocks of the dIPC system:
// the message envelope exchanged between peers, the error taxonomy, the
// configuration structs and the logging setup.
//
// The package focuses on:
//   - Defining the wire-level envelope (command/data/request_id mappings)
//     together with factory functions for the common message shapes
//   - Providing sentinel and typed errors that all layers agree on
//   - Holding the configuration for transports and servers
//   - Configuring the loggers used throughout the system
//
// Key Components:
//
//   - Envelope: the decoded command or response mapping carried inside a
//     frame. Envelopes are plain string-keyed maps so that any serializer
//     (msgpack, json, gob) can encode them without schema knowledge.
//
//   - ErrConnClosed, ErrTimeout, SerializationError: the error taxonomy.
//     A zero-byte read where data was expected is always reported as
//     ErrConnClosed; truncated frames manifest the same way since length
//     mismatches are only detectable via short reads.
//
//   - TransportConfig, ServerConfig: explicit configuration values passed
//     into constructors. There is no implicit process-wide lookup.
package common
