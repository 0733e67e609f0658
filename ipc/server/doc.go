// Package server implements the dIPC dispatch server: a bidirectional
// command/response protocol on top of a typed message queue.
//
// A Server owns one queue (and therefore one stream pair) and runs two
// goroutines once started: a reader that blocks on the queue and drains
// every inbound envelope into a lock-free handoff queue, and a dispatch
// loop that routes those envelopes. Inbound responses (recognized by this
// process's request-id prefix) resolve pending outbound requests; inbound
// commands are dispatched to registered handlers on a bounded worker pool,
// so a slow handler never delays a fast one and replies may be observed
// out of order.
//
// Key Components:
//
//   - CommandHandler: the handler function type. Handlers return a tagged
//     result (value, error); a failing or panicking handler is contained
//     at the dispatch boundary and converted into a wire-level error
//     response. The loop never terminates because a handler failed.
//
//   - Request / AsyncRequest / Notify: outbound correlated requests with
//     timeout handling and pending-state purging, plus fire-and-forget
//     commands.
//
//   - Expose: reflection-based auto-exposure of a service value's public
//     methods as command handlers. Descriptors are computed once at
//     registration, never per call, and are served to the peer by the
//     built-in __get_methods__ command.
//
//   - Built-in handlers: "exit" (immediate process termination),
//     "shutdown" (graceful stop) and "__get_methods__" (introspection).
//
// Lifecycle: NotStarted -> Running (Start) -> Stopped (Stop, the shutdown
// command, peer EOF, or a fatal transport error). No transition leaves
// Stopped. Stopping is best-effort: already dispatched handlers are not
// cancelled and may still complete and reply.
package server
