package exprserver

import (
	"encoding/json"
	"net/http"
)

// result is a prepared HTTP response plus the message that gets logged for
// it: handlers build one of these instead of writing to the ResponseWriter
// directly, so logging and the unauthorized-response delay stay
// centralized in one place.
type result struct {
	status      int
	body        interface{}
	internalMsg string
	isErr       bool
}

type errorBody struct {
	Error     string `json:"error"`
	Status    int    `json:"status"`
	RequestID string `json:"request_id"`
}

func ok(body interface{}, internalMsg string) result {
	return result{status: http.StatusOK, body: body, internalMsg: internalMsg}
}

func errResult(status int, userMsg, internalMsg string) result {
	return result{
		status:      status,
		body:        errorBody{Error: userMsg, Status: status},
		internalMsg: internalMsg,
		isErr:       true,
	}
}

func badRequest(userMsg string) result {
	return errResult(http.StatusBadRequest, userMsg, userMsg)
}

func unauthorized(internalMsg string) result {
	return errResult(http.StatusUnauthorized, "authorization required", internalMsg)
}

func notFound(userMsg string) result {
	return errResult(http.StatusNotFound, userMsg, userMsg)
}

func internalError(internalMsg string) result {
	return errResult(http.StatusInternalServerError, "an internal server error occurred", internalMsg)
}

// write marshals and writes r, stamping requestID into the body of any
// error response so a caller can correlate it against server logs.
func (r result) write(w http.ResponseWriter, requestID string) {
	if eb, ok := r.body.(errorBody); ok {
		eb.RequestID = requestID
		r.body = eb
	}

	data, err := json.Marshal(r.body)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"could not marshal response"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-Id", requestID)
	w.WriteHeader(r.status)
	w.Write(data)
}
