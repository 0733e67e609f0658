package server

import (
	"os"

	"github.com/ValentinKolb/dIPC/ipc/common"
)

// Built-in command names understood by every dispatch server.
const (
	CommandExit       = "exit"
	CommandShutdown   = "shutdown"
	CommandGetMethods = "__get_methods__"
)

// registerBuiltinHandlers installs the lifecycle and introspection commands.
// They can be overridden with RegisterHandler if a host needs different
// semantics.
func (s *Server) registerBuiltinHandlers() {
	s.RegisterHandler(CommandExit, s.handleExit)
	s.RegisterHandler(CommandShutdown, s.handleShutdown)
	s.RegisterHandler(CommandGetMethods, s.handleGetMethods)
}

// handleExit acknowledges the request (if the peer asked for one), flushes
// the standard streams and terminates the process.
func (s *Server) handleExit(_ interface{}, requestID string) (interface{}, error) {
	Logger.Infof("received exit command, terminating process")

	if requestID != "" {
		s.sendResponse(common.Envelope{"status": "exiting"}, requestID)
	}

	os.Stdout.Sync()
	os.Stderr.Sync()
	s.exit(0)
	return nil, nil
}

// handleShutdown acknowledges the request and stops the dispatch loop. It
// must not wait for in-flight handlers: it runs on a handler goroutine
// itself.
func (s *Server) handleShutdown(_ interface{}, requestID string) (interface{}, error) {
	Logger.Infof("received shutdown command, stopping dispatch loop")

	if requestID != "" {
		s.sendResponse(common.Envelope{"status": "shutting_down"}, requestID)
	}

	s.Stop()
	return nil, nil
}

// handleGetMethods reports every auto-exposed method with its declared
// parameters, so a peer can discover the surface at runtime.
func (s *Server) handleGetMethods(_ interface{}, _ string) (interface{}, error) {
	methods := make(map[string]interface{})

	s.methods.Range(func(name string, info MethodInfo) bool {
		params := make([]interface{}, 0, len(info.Parameters))
		for _, p := range info.Parameters {
			params = append(params, map[string]interface{}{
				"name":     p.Name,
				"required": p.Required,
				"type":     p.Type,
			})
		}
		methods[name] = map[string]interface{}{
			"parameters": params,
			"doc":        info.Doc,
			"return":     info.Return,
		}
		return true
	})

	return common.Envelope{"methods": methods}, nil
}
