package server

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dIPC/ipc/common"
	"github.com/ValentinKolb/dIPC/ipc/queue"
	"github.com/ValentinKolb/dIPC/ipc/serializer"
	"github.com/ValentinKolb/dIPC/lib/util"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("ipc")

var (
	commandsDispatchedTotal = metrics.NewCounter("dipc_commands_dispatched_total")
	handlerErrorsTotal      = metrics.NewCounter("dipc_handler_errors_total")
	requestsSentTotal       = metrics.NewCounter("dipc_requests_sent_total")
	requestTimeoutsTotal    = metrics.NewCounter("dipc_request_timeouts_total")
)

// CommandHandler handles a single inbound command. It receives the decoded
// data value and the peer's request id ("" for fire-and-forget commands)
// and returns a response value or an error. A nil result with a nil error
// means the handler chose not to respond.
type CommandHandler func(data interface{}, requestID string) (interface{}, error)

// DefaultHandler handles commands that have no specific registration.
type DefaultHandler func(command string, data interface{}, requestID string) (interface{}, error)

// serverState tracks the irreversible lifecycle of a Server.
type serverState int

const (
	stateNotStarted serverState = iota
	stateRunning
	stateStopped
)

// Server is the dispatch server. Create it with NewServer or NewPipeServer,
// register handlers, then call Start.
//
// Thread-safety: all exported methods are safe for concurrent use.
type Server struct {
	queue  *queue.Queue
	config common.ServerConfig

	handlers *xsync.MapOf[string, CommandHandler]
	methods  *xsync.MapOf[string, MethodInfo]
	pending  *xsync.MapOf[string, chan common.Envelope]

	defaultMu      sync.Mutex
	defaultHandler DefaultHandler

	nextRequestID atomic.Uint64

	stateMu  sync.Mutex
	state    serverState
	stopCh   chan struct{}
	stopOnce sync.Once

	inbox     *util.LockFreeMPSC[common.Envelope]
	workerSem chan struct{}
	handlerWg sync.WaitGroup
	loopWg    sync.WaitGroup

	// exit is swapped out in tests; the "exit" command calls it
	exit func(code int)
}

// NewServer creates a dispatch server on top of an existing typed queue.
// The built-in handlers (exit, shutdown, __get_methods__) are registered
// immediately; use Expose to auto-register a service's methods, then Start
// to run the loop.
func NewServer(q *queue.Queue, config common.ServerConfig) *Server {
	config = config.Normalized()

	s := &Server{
		queue:     q,
		config:    config,
		handlers:  xsync.NewMapOf[string, CommandHandler](),
		methods:   xsync.NewMapOf[string, MethodInfo](),
		pending:   xsync.NewMapOf[string, chan common.Envelope](),
		stopCh:    make(chan struct{}),
		inbox:     util.NewLockFreeMPSC[common.Envelope](),
		workerSem: make(chan struct{}, config.MaxWorkers),
		exit:      os.Exit,
	}

	s.registerBuiltinHandlers()

	Logger.Infof("created dispatch server")
	Logger.Infof(config.String())

	return s
}

// NewPipeServer creates a dispatch server over a raw stream pair,
// constructing the typed queue and framed transport internally.
func NewPipeServer(reader io.ReadCloser, writer io.WriteCloser, s serializer.IIPCSerializer, config common.ServerConfig) *Server {
	config = config.Normalized()
	return NewServer(queue.NewPipeQueue(reader, writer, s, config.Transport), config)
}

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

// Start runs the reader and dispatch goroutines. Starting a running server
// is a no-op; a stopped server cannot be restarted.
func (s *Server) Start() error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	switch s.state {
	case stateRunning:
		return nil
	case stateStopped:
		return fmt.Errorf("server is stopped and cannot be restarted")
	}
	s.state = stateRunning

	s.loopWg.Add(2)
	go s.readLoop()
	go s.dispatchLoop()

	Logger.Infof("dispatch server started")
	return nil
}

// Stop requests the dispatch loop to halt. It does not cancel already
// dispatched handlers (they may still complete and reply) and does not
// close the underlying streams; use Close for a full teardown.
func (s *Server) Stop() {
	s.transitionStopped()
}

// Close stops the server, closes the queue (which unblocks the reader) and
// waits for the reader and dispatch goroutines to exit. In-flight handlers
// are not waited for.
func (s *Server) Close() error {
	s.transitionStopped()
	err := s.queue.Close()
	s.loopWg.Wait()
	return err
}

// Done returns a channel that is closed once the server has stopped, either
// through Stop/Close, a shutdown command or a peer disconnect.
func (s *Server) Done() <-chan struct{} {
	return s.stopCh
}

// Running reports whether the server is in the Running state.
func (s *Server) Running() bool {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state == stateRunning
}

// transitionStopped moves the server into the terminal Stopped state and
// releases everything waiting on the stop channel. Safe to call repeatedly
// and from any goroutine, including handler goroutines.
func (s *Server) transitionStopped() {
	s.stateMu.Lock()
	alreadyStopped := s.state == stateStopped
	s.state = stateStopped
	s.stateMu.Unlock()

	s.stopOnce.Do(func() {
		close(s.stopCh)
	})

	if !alreadyStopped {
		Logger.Infof("dispatch server stopped")
	}
}

// --------------------------------------------------------------------------
// Registration API
// --------------------------------------------------------------------------

// RegisterHandler registers a handler for a specific command, replacing any
// previous registration for that name.
func (s *Server) RegisterHandler(command string, handler CommandHandler) {
	s.handlers.Store(command, handler)
}

// SetDefaultHandler sets a fallback handler for commands with no specific
// registration.
func (s *Server) SetDefaultHandler(handler DefaultHandler) {
	s.defaultMu.Lock()
	s.defaultHandler = handler
	s.defaultMu.Unlock()
}

func (s *Server) getDefaultHandler() DefaultHandler {
	s.defaultMu.Lock()
	defer s.defaultMu.Unlock()
	return s.defaultHandler
}

// --------------------------------------------------------------------------
// Poll loop
// --------------------------------------------------------------------------

// readLoop blocks on the queue and drains every inbound envelope into the
// handoff queue. It runs on its own goroutine so the dispatch loop is never
// blocked by stream I/O.
func (s *Server) readLoop() {
	defer s.loopWg.Done()
	defer s.inbox.Close()

	for {
		v, err := s.queue.Get(false, 0)
		if err != nil {
			if errors.Is(err, common.ErrConnClosed) {
				Logger.Infof("peer closed the connection")
				s.transitionStopped()
				return
			}
			if !s.Running() {
				return
			}
			Logger.Errorf("failed to read message: %v", err)
			// avoid spinning on a persistently failing stream
			time.Sleep(10 * time.Millisecond)
			continue
		}

		if !s.Running() {
			return
		}

		env, ok := common.FromValue(v)
		if !ok {
			Logger.Warningf("dropping non-envelope message of type %T", v)
			continue
		}

		if !s.inbox.Push(&env) {
			return
		}
	}
}

// dispatchLoop routes envelopes from the handoff queue until stopped.
func (s *Server) dispatchLoop() {
	defer s.loopWg.Done()

	for {
		select {
		case env, ok := <-s.inbox.Recv():
			if !ok {
				s.transitionStopped()
				return
			}
			s.route(*env)
		case <-s.stopCh:
			return
		}
	}
}

// route classifies one inbound envelope: a response to one of our pending
// requests, or a command to dispatch.
func (s *Server) route(env common.Envelope) {
	if requestID, ok := env.RequestID(); ok && strings.HasPrefix(requestID, s.config.RequestIDPrefix) {
		// Response to an outbound request. An unmatched id means the request
		// already timed out or this is a duplicate reply; dropping it is the
		// documented behavior.
		if respCh, loaded := s.pending.LoadAndDelete(requestID); loaded {
			respCh <- env
		} else {
			Logger.Debugf("dropping stale response for request id %s", requestID)
		}
		return
	}

	command, ok := env.Command()
	if !ok {
		Logger.Warningf("dropping envelope without command: %v", env)
		return
	}
	requestID, _ := env.RequestID()

	// Dispatch on the bounded worker pool and keep routing immediately.
	// The semaphore is acquired on the worker goroutine, never here, so
	// response routing can not be starved by MaxWorkers slow handlers
	// (a handler may itself be blocked inside Request).
	s.handlerWg.Add(1)
	go func() {
		defer s.handlerWg.Done()

		s.workerSem <- struct{}{}
		defer func() { <-s.workerSem }()

		s.processCommand(command, env.Data(), requestID)
	}()
}

// processCommand resolves and invokes the handler for one command and sends
// the response when the peer asked for one. Handler failures never escape
// this function.
func (s *Server) processCommand(command string, data interface{}, requestID string) {
	commandsDispatchedTotal.Inc()

	handler, ok := s.handlers.Load(command)

	var result interface{}
	var err error

	switch {
	case ok:
		result, err = safeInvoke(handler, data, requestID)
	default:
		if defaultHandler := s.getDefaultHandler(); defaultHandler != nil {
			result, err = safeInvoke(func(d interface{}, rid string) (interface{}, error) {
				return defaultHandler(command, d, rid)
			}, data, requestID)
		} else {
			Logger.Warningf("no handler for command %q", command)
			s.sendResponse(common.NewErrorEnvelope(fmt.Sprintf("Unknown command: %s", command), ""), requestID)
			return
		}
	}

	if err != nil {
		handlerErrorsTotal.Inc()
		Logger.Errorf("handler for command %q failed: %v", command, err)
		s.sendResponse(common.NewErrorEnvelope(err.Error(), diagnosticDetail(err)), requestID)
		return
	}

	if result == nil {
		// handler chose not to respond (built-ins reply on their own)
		return
	}
	s.sendResponse(result, requestID)
}

// sendResponse sends a handler result back to the peer, merging the request
// id into map results and wrapping everything else as {"result": ...}.
// Without a request id there is nothing to reply to and the result is
// dropped. A send failure is logged and swallowed; the loop continues.
func (s *Server) sendResponse(result interface{}, requestID string) {
	if requestID == "" {
		return
	}

	var resp common.Envelope
	if env, ok := common.FromValue(result); ok {
		resp = make(common.Envelope, len(env)+1)
		for k, v := range env {
			resp[k] = v
		}
	} else {
		resp = common.Envelope{common.KeyResult: result}
	}
	resp[common.KeyRequestID] = requestID

	if err := s.queue.Put(resp, false, 0); err != nil {
		Logger.Errorf("failed to send response for request %s: %v", requestID, err)
	}
}

// --------------------------------------------------------------------------
// Handler invocation
// --------------------------------------------------------------------------

// panicError wraps a recovered handler panic so the dispatch boundary can
// report it like any other handler failure, with the stack as detail.
type panicError struct {
	val   interface{}
	stack []byte
}

func (e *panicError) Error() string {
	return fmt.Sprintf("handler panic: %v", e.val)
}

// safeInvoke calls a handler and converts a panic into an error, making the
// "the loop never crashes because of a handler" contract structural.
func safeInvoke(handler CommandHandler, data interface{}, requestID string) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{val: r, stack: debug.Stack()}
		}
	}()
	return handler(data, requestID)
}

// diagnosticDetail renders the detail string for an error response: the
// stack for panics, the full error chain otherwise.
func diagnosticDetail(err error) string {
	var pe *panicError
	if errors.As(err, &pe) {
		return string(pe.stack)
	}
	return fmt.Sprintf("%+v", err)
}
