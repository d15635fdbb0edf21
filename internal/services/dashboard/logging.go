package dashboard

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// newRequestLogger logs every request except the given paths.
func newRequestLogger(logger *log.Logger, ignoredPaths ...string) func(next http.Handler) http.Handler {
	ignored := make(map[string]struct{}, len(ignoredPaths))
	for _, p := range ignoredPaths {
		ignored[p] = struct{}{}
	}
	return middleware.RequestLogger(&selectiveLogFormatter{
		ignoredPaths: ignored,
		base:         &middleware.DefaultLogFormatter{Logger: logger, NoColor: true},
	})
}

type selectiveLogFormatter struct {
	ignoredPaths map[string]struct{}
	base         middleware.LogFormatter
}

func (f *selectiveLogFormatter) NewLogEntry(r *http.Request) middleware.LogEntry {
	if _, ok := f.ignoredPaths[r.URL.Path]; ok {
		return noopLogEntry{}
	}
	return f.base.NewLogEntry(r)
}

type noopLogEntry struct{}

func (noopLogEntry) Write(int, int, http.Header, time.Duration, interface{}) {}

func (noopLogEntry) Panic(interface{}, []byte) {}
