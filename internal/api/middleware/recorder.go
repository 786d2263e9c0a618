package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// statusRecorder remembers the status and size of a response
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

func (r *statusRecorder) Status() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

// routeInfo is what a matched route says about the request
type routeInfo struct {
	Pattern  string
	Stage    string
	NoteID   string
	ActionID string
}

// describeRoute reads the chi match. It must run after the handler so the
// pattern is complete.
func describeRoute(r *http.Request) routeInfo {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return routeInfo{}
	}

	info := routeInfo{Pattern: rctx.RoutePattern()}
	switch {
	case strings.HasPrefix(info.Pattern, "/api/stages/"):
		info.Stage = strings.TrimPrefix(info.Pattern, "/api/stages/")
	case strings.HasPrefix(info.Pattern, "/notes/"):
		info.NoteID = rctx.URLParam("id")
	case strings.HasPrefix(info.Pattern, "/actions/"):
		info.ActionID = rctx.URLParam("id")
	}
	return info
}
