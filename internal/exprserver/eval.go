package exprserver

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/dekarrin/exprlang"
	"github.com/dekarrin/exprlang/internal/exprstore"
)

// requestNamespace resolves a bare variable against the request's own
// Vars first and only falls back to the server's persistent Store for a
// name the request didn't supply, so a caller's own bindings always win
// over a previously cached value.
type requestNamespace struct {
	vars  map[string]float64
	store *exprstore.Store
}

func (n requestNamespace) Lookup(name string, args []float64, keybuf []byte) (float64, bool) {
	if len(args) == 0 {
		if v, ok := n.vars[name]; ok {
			return v, true
		}
	}
	return n.store.Lookup(name, args, keybuf)
}

type evalRequest struct {
	Expr string             `json:"expr"`
	Vars map[string]float64 `json:"vars"`
}

type evalResponse struct {
	Result    float64 `json:"result"`
	RequestID string  `json:"request_id"`
}

// handleEval returns the handler for POST /api/v1/eval. It always
// compiles before evaluating, and rejects oversized input before parsing
// even begins so a malicious caller can't spend arena or CPU budget on an
// expression that would be rejected by the configured Limits anyway.
func (s *Server) handleEval() http.HandlerFunc {
	return s.endpoint(s.epEval)
}

func (s *Server) epEval(req *http.Request) result {
	var body evalRequest
	if err := parseJSONBody(req, &body); err != nil {
		return badRequest(err.Error())
	}

	opts := s.Config.Options()
	if len(body.Expr) > opts.ParseLimits.MaxInputBytes {
		return badRequest(fmt.Sprintf("expression exceeds max_input_bytes (%d)", opts.ParseLimits.MaxInputBytes))
	}

	var ns exprlang.Namespace = exprlang.MapNamespace(body.Vars)
	if s.Store != nil {
		ns = requestNamespace{vars: body.Vars, store: s.Store}
	}

	val, err := exprlang.Eval(body.Expr, opts, ns)
	if err != nil {
		return badRequest(err.Error())
	}

	resp := evalResponse{Result: val, RequestID: requestIDFrom(req.Context())}
	return ok(resp, fmt.Sprintf("evaluated %q", body.Expr))
}

func parseJSONBody(req *http.Request, v interface{}) error {
	data, err := io.ReadAll(req.Body)
	if err != nil {
		return fmt.Errorf("could not read request body: %w", err)
	}
	defer req.Body.Close()

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("malformed JSON in request body: %w", err)
	}
	return nil
}
