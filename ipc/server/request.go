package server

import (
	"fmt"
	"time"

	"github.com/ValentinKolb/dIPC/ipc/common"
)

// Result carries the outcome of an asynchronous request.
type Result struct {
	Value interface{}
	Err   error
}

// Request sends a command to the peer and blocks until the matching
// response arrives, the timeout expires or the server stops. A timeout of
// zero means wait indefinitely. The raw response envelope is returned;
// Call is the convenience wrapper that unpacks it.
func (s *Server) Request(command string, data interface{}, timeout time.Duration) (common.Envelope, error) {
	requestsSentTotal.Inc()

	requestID := fmt.Sprintf("%s%d", s.config.RequestIDPrefix, s.nextRequestID.Add(1))

	// Register before sending so a fast peer cannot respond into the void.
	respCh := make(chan common.Envelope, 1)
	s.pending.Store(requestID, respCh)

	env := common.NewCommandEnvelope(command, data, requestID)
	if err := s.queue.Put(env, false, 0); err != nil {
		s.pending.Delete(requestID)
		return nil, fmt.Errorf("failed to send request %s: %w", requestID, err)
	}

	var timerCh <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timerCh = timer.C
	}

	select {
	case resp := <-respCh:
		return resp, nil
	case <-timerCh:
		s.pending.Delete(requestID)
		requestTimeoutsTotal.Inc()
		return nil, fmt.Errorf("request %s for command %q: %w", requestID, command, common.ErrTimeout)
	case <-s.stopCh:
		s.pending.Delete(requestID)
		return nil, common.ErrServerStopped
	}
}

// Call sends a command and unpacks the response: an error envelope becomes
// a Go error, otherwise the result value is returned.
func (s *Server) Call(command string, data interface{}, timeout time.Duration) (interface{}, error) {
	resp, err := s.Request(command, data, timeout)
	if err != nil {
		return nil, err
	}
	if errMsg, ok := resp.Err(); ok {
		return nil, fmt.Errorf("remote error for command %q: %s", command, errMsg)
	}
	return resp.Result(), nil
}

// AsyncRequest sends a command without blocking the caller. The returned
// channel receives exactly one Result.
func (s *Server) AsyncRequest(command string, data interface{}, timeout time.Duration) <-chan Result {
	resultCh := make(chan Result, 1)
	go func() {
		value, err := s.Call(command, data, timeout)
		resultCh <- Result{Value: value, Err: err}
	}()
	return resultCh
}

// Notify sends a fire-and-forget command: no request id, no response
// expected.
func (s *Server) Notify(command string, data interface{}) error {
	return s.queue.Put(common.NewCommandEnvelope(command, data, ""), false, 0)
}
