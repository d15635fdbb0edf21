package dashboard

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/form/v4"

	"github.com/LeonardoBeccarini/sdcc_dashboard/internal/model/entities"
)

type pumpForm struct {
	Action   string `form:"action"`
	Duration string `form:"duration"`
}

type cropForm struct {
	Crop string `form:"crop"`
}

type actions struct {
	pump    *PumpController
	crop    *CropAdvisor
	prefs   *PreferenceStore
	view    *View
	up      *Upstream
	decoder *form.Decoder
	log     *log.Logger
}

func (a *actions) decodePostForm(r *http.Request, dst any) error {
	if err := r.ParseForm(); err != nil {
		return err
	}
	return a.decoder.Decode(dst, r.PostForm)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// accepted reports the outcome of an action. The page frame carries what
// the user sees; the body is for scripts.
func accepted(w http.ResponseWriter, err error) {
	body := map[string]any{"ok": err == nil}
	if err != nil {
		body["error"] = err.Error()
	}
	writeJSON(w, http.StatusAccepted, body)
}

func (a *actions) handlePage(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.view.Page())
}

func (a *actions) handlePump(w http.ResponseWriter, r *http.Request) {
	var f pumpForm
	if err := a.decodePostForm(r, &f); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	action, err := entities.ParsePumpState(f.Action)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	accepted(w, a.pump.ControlPump(r.Context(), action, f.Duration))
}

func (a *actions) handleCrop(w http.ResponseWriter, r *http.Request) {
	var f cropForm
	if err := a.decodePostForm(r, &f); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	accepted(w, a.crop.FetchCropInfo(r.Context(), f.Crop))
}

func (a *actions) handleConfirm(w http.ResponseWriter, r *http.Request) {
	err := a.crop.Confirm(r.Context())
	if errors.Is(err, ErrNoCropAction) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	accepted(w, err)
}

func (a *actions) handleReset(w http.ResponseWriter, r *http.Request) {
	err := a.crop.Reset(r.Context())
	if errors.Is(err, ErrNoCropAction) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	accepted(w, err)
}

func (a *actions) handleDarkMode(w http.ResponseWriter, _ *http.Request) {
	on, err := a.prefs.Toggle()
	body := map[string]any{"dark_mode": on}
	if err != nil {
		body["error"] = err.Error()
	}
	writeJSON(w, http.StatusAccepted, body)
}

// handleCSV sends the browser to the backend export.
func (a *actions) handleCSV(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, a.up.URL("/download-csv"), http.StatusFound)
}

type routes struct {
	api     *actions
	ws      *WSHub
	health  http.Handler
	ready   http.Handler
	history http.Handler
	metrics http.Handler
	index   http.Handler
}

func newRouter(rt routes, logger *log.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(newRequestLogger(logger, "/healthz", "/readyz", "/metrics", "/ws"))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", rt.health.ServeHTTP)
	r.Get("/readyz", rt.ready.ServeHTTP)
	r.Method(http.MethodGet, "/metrics", rt.metrics)
	r.Get("/ws", rt.ws.ServeWS)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Method(http.MethodGet, "/", rt.index)
		r.Get("/download-csv", rt.api.handleCSV)

		r.Route("/api", func(r chi.Router) {
			r.Get("/page", rt.api.handlePage)
			r.Method(http.MethodGet, "/history", rt.history)
			r.Post("/pump", rt.api.handlePump)
			r.Post("/crop", rt.api.handleCrop)
			r.Post("/crop/confirm", rt.api.handleConfirm)
			r.Post("/crop/reset", rt.api.handleReset)
			r.Post("/dark-mode", rt.api.handleDarkMode)
		})
	})
	return r
}
