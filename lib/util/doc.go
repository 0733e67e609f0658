// Package util provides concurrency utilities used by the dIPC dispatch
// server. Its main component is a lock-free multi-producer single-consumer
// queue that hands received envelopes from the transport reader to the
// dispatch loop without blocking the reader on a slow consumer.
package util
