// Package pipe implements the framed transport over a pair of byte
// streams, typically the two ends of OS pipes connecting this process to
// its peer.
//
// Wire format: each message is a frame consisting of a 4-byte big-endian
// unsigned length prefix followed by exactly that many payload bytes.
// There is no checksum and no type tag; the frame boundary is length-only.
// The prefix and the payload are written as two separately flushed writes
// because not every pipe implementation guarantees atomic delivery of a
// single write, and the receiver always reads the prefix as a fixed
// 4-byte unit before anything else.
//
// Messages no larger than the configured buffer size are received through
// a pool of reusable fixed-size buffers to avoid a per-message allocation
// on the hot receive path. The decoded payload handed to the caller is
// always an independent copy; callers never hold a reference into
// pool-owned memory.
//
// Go performs no text-mode translation on file handles, so the raw-mode
// switch required by some platforms' standard streams in other runtimes
// has no equivalent here; any io.ReadCloser/io.WriteCloser pair works
// as-is.
package pipe
