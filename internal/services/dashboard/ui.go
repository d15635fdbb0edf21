package dashboard

import (
	_ "embed"
	"net/http"
)

//go:embed ui/index.html
var indexHTML []byte

func indexHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(indexHTML)
	})
}
