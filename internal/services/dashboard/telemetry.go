package dashboard

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/LeonardoBeccarini/sdcc_dashboard/internal/model/entities"
	"github.com/LeonardoBeccarini/sdcc_dashboard/internal/model/messages"
)

const defaultPollInterval = 30 * time.Second

// TelemetryPoller fetches the latest reading, feeds the rolling series and
// the charts, and drives the five status indicators.
type TelemetryPoller struct {
	up       *Upstream
	view     *View
	series   *RollingSeries
	status   *StatusBoard
	sink     SnapshotSink
	metrics  *Metrics
	log      *log.Logger
	interval time.Duration

	newTicker tickerFactory
	now       func() time.Time

	mu         sync.Mutex
	seen       bool
	prevMillis *int64

	lastOK atomic.Int64 // unix nanos, 0 before the first success
}

type TelemetryConfig struct {
	Interval time.Duration
	Series   *RollingSeries
	Sink     SnapshotSink
	Metrics  *Metrics
	Logger   *log.Logger
}

func NewTelemetryPoller(up *Upstream, view *View, status *StatusBoard, cfg TelemetryConfig) *TelemetryPoller {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultPollInterval
	}
	if cfg.Series == nil {
		cfg.Series = NewRollingSeries(defaultHistorySize)
	}
	if cfg.Sink == nil {
		cfg.Sink = nopSink{}
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	return &TelemetryPoller{
		up:        up,
		view:      view,
		series:    cfg.Series,
		status:    status,
		sink:      cfg.Sink,
		metrics:   cfg.Metrics,
		log:       cfg.Logger,
		interval:  cfg.Interval,
		newTicker: newRealTicker,
		now:       time.Now,
	}
}

// Run polls once immediately and then on every tick until ctx is done.
func (t *TelemetryPoller) Run(ctx context.Context) {
	t.Poll(ctx)
	tk := t.newTicker(t.interval)
	defer tk.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tk.C():
			t.Poll(ctx)
		}
	}
}

// Poll runs one cycle. Cycles never overlap.
func (t *TelemetryPoller) Poll(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap, err := t.fetch(ctx)
	t.metrics.PollCycle(err)
	if err != nil {
		t.log.Printf("telemetry: %v", err)
		for _, id := range indicatorIDs {
			t.status.Update(id, false, vocabularyFor(id))
		}
		return err
	}
	now := t.now()
	t.lastOK.Store(now.UnixNano())

	fresh := !t.seen || !sameMillis(t.prevMillis, snap.Millis)
	t.seen = true
	t.prevMillis = snap.Millis

	t.series.Append(now.Format("15:04:05"), snap)
	t.metrics.SetSeriesLength(t.series.Len())
	t.sink.WriteSnapshot(snap, fresh, now)

	linkDown := snap.LinkDown()
	if fresh && !linkDown {
		s := t.series.Snapshot()
		if !snap.SoilMoisture.Damaged() {
			t.view.Chart(ChartSoilMoisture).Update(s.Labels, chartValues(s.SoilMoisture))
		}
		if !snap.Temperature.Damaged() {
			t.view.Chart(ChartTemperature).Update(s.Labels, chartValues(s.Temperature))
		}
		if !snap.Humidity.Damaged() {
			t.view.Chart(ChartHumidity).Update(s.Labels, chartValues(s.Humidity))
		}
	}

	t.status.Update(ElemLocalLink, fresh, LinkVocabulary)
	t.status.Update(ElemRemoteLink, fresh && !linkDown, LinkVocabulary)
	// sensor indicators also need a working temperature channel
	tempOK := fresh && snap.Temperature.OK()
	t.status.Update(ElemTemperatureStatus, tempOK, SensorVocabulary)
	t.status.Update(ElemHumidityStatus, tempOK && !snap.Humidity.Damaged(), SensorVocabulary)
	t.status.Update(ElemMoistureStatus, tempOK && !snap.SoilMoisture.Damaged(), SensorVocabulary)
	return nil
}

func (t *TelemetryPoller) fetch(ctx context.Context) (entities.Snapshot, error) {
	var data messages.SensorData
	if err := t.up.GetJSON(ctx, "/sensor-data", nil, &data); err != nil {
		return entities.Snapshot{}, err
	}
	return data.Snapshot()
}

// LastSuccess is the time of the last successful cycle; zero before the first.
func (t *TelemetryPoller) LastSuccess() time.Time {
	ns := t.lastOK.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

func (t *TelemetryPoller) Interval() time.Duration { return t.interval }

func (t *TelemetryPoller) Series() *RollingSeries { return t.series }

func sameMillis(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func vocabularyFor(id string) Vocabulary {
	if id == ElemLocalLink || id == ElemRemoteLink {
		return LinkVocabulary
	}
	return SensorVocabulary
}
