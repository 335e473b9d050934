package middleware

import (
	"github.com/gin-gonic/gin"
)

// FlushReporter reports why recent changes may not have reached durable
// storage, or nil when they did.
type FlushReporter interface {
	PersistenceWarning() error
}

// PersistenceWarningMiddleware sets PersistenceWarningHeader on any response
// whose status is written while changes are not reaching durable storage. The
// check happens at WriteHeader time, after the handler ran the operation.
func PersistenceWarningMiddleware(reporter FlushReporter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if reporter == nil {
			c.Next()
			return
		}

		c.Writer = &warningResponseWriter{
			ResponseWriter: c.Writer,
			reporter:       reporter,
		}
		c.Next()
	}
}

// warningResponseWriter wraps gin.ResponseWriter to add the warning header
// just before the status is committed.
type warningResponseWriter struct {
	gin.ResponseWriter
	reporter FlushReporter
}

func (w *warningResponseWriter) WriteHeader(code int) {
	if !w.Written() {
		if err := w.reporter.PersistenceWarning(); err != nil {
			w.Header().Set(PersistenceWarningHeader, "changes not saved: "+err.Error())
		} else {
			w.Header().Del(PersistenceWarningHeader)
		}
	}
	w.ResponseWriter.WriteHeader(code)
}
