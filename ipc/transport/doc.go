// Package transport defines the interface for the framed transport layer
// of the dIPC system. A transport turns a pair of unidirectional byte
// streams into discrete messages; the wire format and the buffer reuse
// strategy are implementation details of the concrete transports.
//
// The pipe sub-package provides the length-prefixed implementation used
// for communication over OS pipes or any other io.Reader/io.Writer pair.
package transport
