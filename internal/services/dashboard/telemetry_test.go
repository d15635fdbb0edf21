package dashboard

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/LeonardoBeccarini/sdcc_dashboard/internal/model/entities"
)

type sinkWrite struct {
	snap  entities.Snapshot
	fresh bool
}

type recordingSink struct {
	mu     sync.Mutex
	writes []sinkWrite
}

func (s *recordingSink) WriteSnapshot(snap entities.Snapshot, fresh bool, _ time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = append(s.writes, sinkWrite{snap: snap, fresh: fresh})
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.writes)
}

type telemetryFixture struct {
	backend *fakeBackend
	view    *View
	poller  *TelemetryPoller
	sink    *recordingSink
	events  *recordingEvents
}

func newTelemetryFixture(t *testing.T) *telemetryFixture {
	t.Helper()
	b := newFakeBackend(t)
	v := NewView(quietLogger)
	ev := &recordingEvents{}
	sink := &recordingSink{}
	p := NewTelemetryPoller(b.upstream(), v, NewStatusBoard(v, ev, nil), TelemetryConfig{
		Sink:   sink,
		Logger: quietLogger,
	})
	clock := time.Date(2025, 6, 1, 8, 0, 0, 0, time.Local)
	p.now = func() time.Time {
		clock = clock.Add(30 * time.Second)
		return clock
	}
	return &telemetryFixture{backend: b, view: v, poller: p, sink: sink, events: ev}
}

func (f *telemetryFixture) serve(temp, hum, soil float64, millis int64) {
	f.backend.reply("/sensor-data", 200, fmt.Sprintf(
		`{"temperature":%g,"humidity":%g,"soil_moisture":%g,"millis":%d}`, temp, hum, soil, millis))
}

func (f *telemetryFixture) indicators() map[string]string {
	out := make(map[string]string, len(indicatorIDs))
	for _, id := range indicatorIDs {
		out[id] = f.view.Element(id).Text
	}
	return out
}

func (f *telemetryFixture) redraws() map[string]int {
	page := f.view.Page()
	out := make(map[string]int, len(page.Charts))
	for id, c := range page.Charts {
		out[id] = c.Redraws
	}
	return out
}

func expectIndicators(t *testing.T, got map[string]string, want map[string]string) {
	t.Helper()
	for id, w := range want {
		if got[id] != w {
			t.Errorf("Expected %s to be %s, got %s", id, w, got[id])
		}
	}
}

var allUp = map[string]string{
	ElemLocalLink:         "Connected",
	ElemRemoteLink:        "Connected",
	ElemTemperatureStatus: "Working",
	ElemHumidityStatus:    "Working",
	ElemMoistureStatus:    "Working",
}

var allDown = map[string]string{
	ElemLocalLink:         "Disconnected",
	ElemRemoteLink:        "Disconnected",
	ElemTemperatureStatus: "Damaged",
	ElemHumidityStatus:    "Damaged",
	ElemMoistureStatus:    "Damaged",
}

func TestPoll_FirstSuccess(t *testing.T) {
	f := newTelemetryFixture(t)
	f.serve(24.5, 55, 1000, 1200)

	if err := f.poller.Poll(context.Background()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	expectIndicators(t, f.indicators(), allUp)
	if e := f.view.Element(ElemLocalLink); e.Class != "status connected" {
		t.Errorf("Expected connected class, got %q", e.Class)
	}

	page := f.view.Page()
	soil := page.Charts[ChartSoilMoisture]
	if soil.Redraws != 1 || len(soil.Values) != 1 || soil.Values[0] == nil || *soil.Values[0] != 76 {
		t.Errorf("Expected soil chart with 76%%, got %+v", soil)
	}
	if got := page.Charts[ChartTemperature].Labels; len(got) != 1 || got[0] != "08:00:30" {
		t.Errorf("Expected label 08:00:30, got %v", got)
	}
	if f.sink.count() != 1 || !f.sink.writes[0].fresh {
		t.Errorf("Expected one fresh snapshot written")
	}
}

func TestPoll_IdenticalMillisIsStale(t *testing.T) {
	f := newTelemetryFixture(t)
	f.serve(24.5, 55, 1000, 1200)
	_ = f.poller.Poll(context.Background())
	_ = f.poller.Poll(context.Background())

	if n := f.poller.Series().Len(); n != 2 {
		t.Errorf("Expected series to grow to 2, got %d", n)
	}
	for id, n := range f.redraws() {
		if n != 1 {
			t.Errorf("Expected %s not redrawn on stale data, got %d redraws", id, n)
		}
	}
	expectIndicators(t, f.indicators(), allDown)

	f.serve(24.5, 55, 1000, 1300)
	_ = f.poller.Poll(context.Background())
	expectIndicators(t, f.indicators(), allUp)
	if got := f.view.Page().Charts[ChartHumidity]; got.Redraws != 2 || len(got.Values) != 3 {
		t.Errorf("Expected humidity redraw with 3 points, got %+v", got)
	}
}

func TestPoll_SeriesIsBounded(t *testing.T) {
	f := newTelemetryFixture(t)
	for i := 0; i < 25; i++ {
		f.serve(20, 50, 2000, int64(i))
		if err := f.poller.Poll(context.Background()); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
	}

	s := f.poller.Series().Snapshot()
	if len(s.Labels) != 20 || len(s.Temperature) != 20 || len(s.Humidity) != 20 || len(s.SoilMoisture) != 20 {
		t.Errorf("Expected 20 entries in every sequence, got %d/%d/%d/%d",
			len(s.Labels), len(s.Temperature), len(s.Humidity), len(s.SoilMoisture))
	}
	chart := f.view.Page().Charts[ChartTemperature]
	if len(chart.Labels) != 20 || len(chart.Values) != 20 {
		t.Errorf("Expected 20 chart points, got %d/%d", len(chart.Labels), len(chart.Values))
	}
}

func TestPoll_Sentinels(t *testing.T) {
	testCases := []struct {
		name        string
		temp        float64
		hum         float64
		soil        float64
		indicators  map[string]string
		wantRedraws map[string]int
	}{
		{
			name: "remote link down",
			temp: -101, hum: 50, soil: 2000,
			indicators: map[string]string{
				ElemLocalLink:         "Connected",
				ElemRemoteLink:        "Disconnected",
				ElemTemperatureStatus: "Damaged",
				ElemHumidityStatus:    "Damaged",
				ElemMoistureStatus:    "Damaged",
			},
			wantRedraws: map[string]int{ChartSoilMoisture: 0, ChartTemperature: 0, ChartHumidity: 0},
		},
		{
			name: "temperature sensor damaged",
			temp: -100, hum: 50, soil: 2000,
			indicators: map[string]string{
				ElemLocalLink:         "Connected",
				ElemRemoteLink:        "Connected",
				ElemTemperatureStatus: "Damaged",
				ElemHumidityStatus:    "Damaged",
				ElemMoistureStatus:    "Damaged",
			},
			wantRedraws: map[string]int{ChartSoilMoisture: 1, ChartTemperature: 0, ChartHumidity: 1},
		},
		{
			name: "humidity and soil damaged",
			temp: 22, hum: -100, soil: -100,
			indicators: map[string]string{
				ElemLocalLink:         "Connected",
				ElemRemoteLink:        "Connected",
				ElemTemperatureStatus: "Working",
				ElemHumidityStatus:    "Damaged",
				ElemMoistureStatus:    "Damaged",
			},
			wantRedraws: map[string]int{ChartSoilMoisture: 0, ChartTemperature: 1, ChartHumidity: 0},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newTelemetryFixture(t)
			f.serve(tc.temp, tc.hum, tc.soil, 42)
			if err := f.poller.Poll(context.Background()); err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			expectIndicators(t, f.indicators(), tc.indicators)
			got := f.redraws()
			for id, want := range tc.wantRedraws {
				if got[id] != want {
					t.Errorf("Expected %s redraws %d, got %d", id, want, got[id])
				}
			}
			if f.poller.Series().Len() != 1 {
				t.Errorf("Expected the reading to be appended")
			}
		})
	}
}

func TestPoll_SentinelIsNeverPlotted(t *testing.T) {
	f := newTelemetryFixture(t)
	f.serve(21, -100, 2000, 1)
	_ = f.poller.Poll(context.Background())
	f.serve(22, 61, 2000, 2)
	_ = f.poller.Poll(context.Background())

	hum := f.view.Page().Charts[ChartHumidity]
	if len(hum.Values) != 2 {
		t.Fatalf("Expected 2 humidity points, got %d", len(hum.Values))
	}
	if hum.Values[0] != nil {
		t.Errorf("Expected a gap for the damaged reading, got %v", *hum.Values[0])
	}
	if hum.Values[1] == nil || *hum.Values[1] != 61 {
		t.Errorf("Expected 61, got %v", hum.Values[1])
	}
}

func TestPoll_Failure(t *testing.T) {
	testCases := []struct {
		name string
		code int
		body string
	}{
		{name: "server error", code: 500, body: `{}`},
		{name: "not found", code: 404, body: `{}`},
		{name: "not json", code: 200, body: `<html>`},
		{name: "incomplete", code: 200, body: `{"temperature":null,"humidity":null,"soil_moisture":null,"millis":0}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newTelemetryFixture(t)
			f.serve(24, 55, 1000, 7)
			_ = f.poller.Poll(context.Background())

			f.backend.reply("/sensor-data", tc.code, tc.body)
			if err := f.poller.Poll(context.Background()); err == nil {
				t.Fatalf("Expected an error")
			}
			expectIndicators(t, f.indicators(), allDown)
			if n := f.poller.Series().Len(); n != 1 {
				t.Errorf("Expected no append on failure, got %d entries", n)
			}

			// previous millis is kept, so the same reading is still stale
			f.serve(24, 55, 1000, 7)
			_ = f.poller.Poll(context.Background())
			if got := f.view.Element(ElemLocalLink).Text; got != "Disconnected" {
				t.Errorf("Expected stale reading after failure, got %s", got)
			}
		})
	}
}

func TestPoll_StringValues(t *testing.T) {
	f := newTelemetryFixture(t)
	f.backend.reply("/sensor-data", 200, `{"temperature":"23.5","humidity":"48","soil_moisture":"4095","millis":"99"}`)

	if err := f.poller.Poll(context.Background()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	soil := f.view.Page().Charts[ChartSoilMoisture]
	if len(soil.Values) != 1 || soil.Values[0] == nil || *soil.Values[0] != 0 {
		t.Errorf("Expected 0%% moisture, got %+v", soil.Values)
	}
}

func TestRun_PollsImmediatelyThenOnTicks(t *testing.T) {
	f := newTelemetryFixture(t)
	f.serve(24, 55, 1000, 1)
	rec := &tickerRecorder{}
	f.poller.newTicker = rec.factory

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.poller.Run(ctx)
		close(done)
	}()

	waitFor(t, "first poll", func() bool { return len(f.backend.callsTo("/sensor-data")) == 1 })
	waitFor(t, "ticker", func() bool { return rec.count() == 1 })

	rec.last().fire(t)
	waitFor(t, "second poll", func() bool { return len(f.backend.callsTo("/sensor-data")) == 2 })

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Expected Run to return after cancel")
	}
	if !rec.last().isStopped() {
		t.Errorf("Expected ticker to be stopped")
	}
}

func TestLastSuccess_DoesNotWaitForPoll(t *testing.T) {
	f := newTelemetryFixture(t)
	f.serve(21, 55, 2000, 1)
	if err := f.poller.Poll(context.Background()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	first := f.poller.LastSuccess()
	if first.IsZero() {
		t.Fatalf("Expected a last success time")
	}

	entered := make(chan struct{})
	release := make(chan struct{})
	f.backend.handle("/sensor-data", func(w http.ResponseWriter, _ *http.Request) {
		close(entered)
		<-release
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"temperature":22,"humidity":56,"soil_moisture":2100,"millis":2}`)
	})
	polled := make(chan error, 1)
	go func() { polled <- f.poller.Poll(context.Background()) }()
	<-entered

	got := make(chan time.Time, 1)
	go func() { got <- f.poller.LastSuccess() }()
	select {
	case ts := <-got:
		if !ts.Equal(first) {
			t.Errorf("Expected %v while the poll is in flight, got %v", first, ts)
		}
	case <-time.After(time.Second):
		t.Errorf("Expected LastSuccess to return while a poll is in flight")
	}

	close(release)
	if err := <-polled; err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !f.poller.LastSuccess().After(first) {
		t.Errorf("Expected the last success time to advance")
	}
}
