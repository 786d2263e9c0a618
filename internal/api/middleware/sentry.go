package middleware

import (
	"fmt"
	"net/http"

	"github.com/getsentry/sentry-go"
)

// SentryMiddleware opens a transaction per request and reports panics and
// 5xx responses. Events are tagged with the request id and, once the route
// is matched, the stage, note id or action id it addresses. Without an
// initialised Sentry client it only costs the transaction bookkeeping.
func SentryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub := sentry.GetHubFromContext(r.Context())
		if hub == nil {
			hub = sentry.CurrentHub().Clone()
		}

		options := []sentry.SpanOption{
			sentry.WithOpName("http.server"),
			sentry.WithTransactionSource(sentry.SourceURL),
		}
		if trace := r.Header.Get(sentry.SentryTraceHeader); trace != "" {
			options = append(options, sentry.ContinueFromHeaders(trace, r.Header.Get(sentry.SentryBaggageHeader)))
		}

		tx := sentry.StartTransaction(r.Context(), r.Method+" "+r.URL.Path, options...)
		defer tx.Finish()

		r = r.WithContext(sentry.SetHubOnContext(tx.Context(), hub))

		scope := hub.Scope()
		scope.SetContext("request", sentry.Context{
			"method":      r.Method,
			"path":        r.URL.Path,
			"remote_addr": clientIP(r),
		})
		if requestID := GetRequestID(r.Context()); requestID != "" {
			scope.SetTag("request_id", requestID)
			tx.SetTag("request_id", requestID)
		}

		defer func() {
			if err := recover(); err != nil {
				tx.Status = sentry.SpanStatusInternalError
				hub.RecoverWithContext(r.Context(), err)
				panic(err)
			}
		}()

		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		status := rec.Status()
		tx.Status = httpStatusToSpanStatus(status)
		tx.SetData("http.response.status_code", status)

		route := describeRoute(r)
		if route.Pattern != "" {
			tx.Name = r.Method + " " + route.Pattern
			scope.SetTag("route", route.Pattern)
		}
		for tag, value := range map[string]string{
			"stage":     route.Stage,
			"note_id":   route.NoteID,
			"action_id": route.ActionID,
		} {
			if value != "" {
				scope.SetTag(tag, value)
				tx.SetTag(tag, value)
			}
		}

		if status >= http.StatusInternalServerError {
			hub.CaptureMessage(fmt.Sprintf("HTTP %d on %s", status, tx.Name))
		}
	})
}

// httpStatusToSpanStatus converts an HTTP status code to a Sentry span status
func httpStatusToSpanStatus(status int) sentry.SpanStatus {
	switch status {
	case http.StatusNotFound:
		return sentry.SpanStatusNotFound
	case http.StatusRequestEntityTooLarge, http.StatusTooManyRequests:
		return sentry.SpanStatusResourceExhausted
	case 499:
		return sentry.SpanStatusCanceled
	case http.StatusNotImplemented:
		return sentry.SpanStatusUnimplemented
	case http.StatusServiceUnavailable:
		return sentry.SpanStatusUnavailable
	case http.StatusGatewayTimeout:
		return sentry.SpanStatusDeadlineExceeded
	}

	switch {
	case status >= 200 && status < 300:
		return sentry.SpanStatusOK
	case status >= 400 && status < 500:
		return sentry.SpanStatusInvalidArgument
	case status >= 500:
		return sentry.SpanStatusInternalError
	default:
		return sentry.SpanStatusUnknown
	}
}
