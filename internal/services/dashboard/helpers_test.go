package dashboard

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/LeonardoBeccarini/sdcc_dashboard/internal/model/entities"
)

var quietLogger = log.New(io.Discard, "", 0)

type recordedCall struct {
	Method string
	Path   string
	Query  string
	Body   []byte
}

// fakeBackend is an irrigation backend whose replies are set per path.
type fakeBackend struct {
	mu     sync.Mutex
	routes map[string]http.HandlerFunc
	calls  []recordedCall
	srv    *httptest.Server
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	b := &fakeBackend{routes: make(map[string]http.HandlerFunc)}
	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		b.mu.Lock()
		b.calls = append(b.calls, recordedCall{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Body: body})
		h := b.routes[r.URL.Path]
		b.mu.Unlock()
		if h == nil {
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
	t.Cleanup(b.srv.Close)
	return b
}

func (b *fakeBackend) reply(path string, code int, body string) {
	b.handle(path, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_, _ = io.WriteString(w, body)
	})
}

func (b *fakeBackend) handle(path string, h http.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.routes[path] = h
}

func (b *fakeBackend) callsTo(path string) []recordedCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []recordedCall
	for _, c := range b.calls {
		if c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

func (b *fakeBackend) upstream() *Upstream {
	return NewUpstream(b.srv.URL, 2*time.Second, BreakerSettings{Failures: 100, OpenFor: time.Second}, quietLogger)
}

func decodeBody(t *testing.T, c recordedCall, out any) {
	t.Helper()
	if err := json.Unmarshal(c.Body, out); err != nil {
		t.Fatalf("Expected JSON body, got %q: %v", c.Body, err)
	}
}

// fakeTicker delivers ticks only when the test fires them.
type fakeTicker struct {
	ch      chan time.Time
	stopped chan struct{}
	once    sync.Once
}

func newFakeTicker() *fakeTicker {
	return &fakeTicker{ch: make(chan time.Time), stopped: make(chan struct{})}
}

func (f *fakeTicker) C() <-chan time.Time { return f.ch }

func (f *fakeTicker) Stop() { f.once.Do(func() { close(f.stopped) }) }

func (f *fakeTicker) isStopped() bool {
	select {
	case <-f.stopped:
		return true
	default:
		return false
	}
}

// fire blocks until the tick is received.
func (f *fakeTicker) fire(t *testing.T) {
	t.Helper()
	select {
	case f.ch <- time.Now():
	case <-time.After(2 * time.Second):
		t.Fatalf("Expected tick to be consumed")
	}
}

// tickerRecorder hands out fake tickers and remembers them.
type tickerRecorder struct {
	mu      sync.Mutex
	tickers []*fakeTicker
}

func (r *tickerRecorder) factory(time.Duration) ticker {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := newFakeTicker()
	r.tickers = append(r.tickers, t)
	return t
}

func (r *tickerRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tickers)
}

func (r *tickerRecorder) last() *fakeTicker {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.tickers) == 0 {
		return nil
	}
	return r.tickers[len(r.tickers)-1]
}

// fakeTimers captures AfterFunc callbacks so tests can run them by hand.
type fakeTimers struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

func (ft *fakeTimers) after(d time.Duration, f func()) stopper {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	ft.timers = append(ft.timers, t)
	return t
}

func (ft *fakeTimers) get(i int) *fakeTimer {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return ft.timers[i]
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Expected %s", what)
}

// recordingEvents is an EventSink that keeps everything it is told.
type recordingEvents struct {
	mu         sync.Mutex
	pump       []pumpEvent
	crop       []cropEvent
	indicators []string
}

type pumpEvent struct {
	State     string
	Duration  time.Duration
	Automatic bool
}

type cropEvent struct {
	Crop  string
	Reset bool
}

func (e *recordingEvents) PumpChanged(state entities.PumpState, d time.Duration, automatic bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pump = append(e.pump, pumpEvent{State: string(state), Duration: d, Automatic: automatic})
}

func (e *recordingEvents) CropConfirmed(crop string, _ entities.Thresholds, reset bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.crop = append(e.crop, cropEvent{Crop: crop, Reset: reset})
}

func (e *recordingEvents) Indicator(id string, up bool, _ string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if up {
		e.indicators = append(e.indicators, id+"=up")
	} else {
		e.indicators = append(e.indicators, id+"=down")
	}
}

func (e *recordingEvents) pumpEvents() []pumpEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]pumpEvent(nil), e.pump...)
}

func (e *recordingEvents) cropEvents() []cropEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]cropEvent(nil), e.crop...)
}
