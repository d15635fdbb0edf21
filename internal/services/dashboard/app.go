package dashboard

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-playground/form/v4"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

// Config collects everything the dashboard needs. Optional collaborators
// (MQTT, Influx) are nil when disabled.
type Config struct {
	HTTPPort     int
	BackendURL   string
	HTTPTimeout  time.Duration
	PollInterval time.Duration
	HistorySize  int
	Breaker      BreakerSettings
	PrefsPath    string
	ShutdownWait time.Duration

	MQTT   mqtt.Client
	Events EventSink

	InfluxWrite       api.WriteAPI
	InfluxQuery       api.QueryAPI
	InfluxBucket      string
	InfluxMeasurement string

	Logger *log.Logger
}

// Dashboard is the wired service.
type Dashboard struct {
	cfg Config
	log *log.Logger

	View      *View
	Upstream  *Upstream
	Notifier  *Notifier
	Status    *StatusBoard
	Pump      *PumpController
	Crop      *CropAdvisor
	Telemetry *TelemetryPoller
	Prefs     *PreferenceStore
	Hub       *WSHub
	Metrics   *Metrics
	Writer    *InfluxWriter

	handler http.Handler
}

func New(cfg Config) *Dashboard {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Events == nil {
		cfg.Events = NopEvents{}
	}
	if cfg.ShutdownWait <= 0 {
		cfg.ShutdownWait = 5 * time.Second
	}
	logger := cfg.Logger

	d := &Dashboard{cfg: cfg, log: logger}
	d.Metrics = NewMetrics()
	d.View = NewView(logger)
	d.Upstream = NewUpstream(cfg.BackendURL, cfg.HTTPTimeout, cfg.Breaker, logger)
	d.Notifier = NewNotifier(d.View)
	d.Status = NewStatusBoard(d.View, cfg.Events, d.Metrics)
	d.Pump = NewPumpController(d.Upstream, d.View, cfg.Events, d.Metrics, logger)
	d.Crop = NewCropAdvisor(d.Upstream, d.View, d.Notifier, cfg.Events, d.Metrics, logger)
	d.Prefs = NewPreferenceStore(cfg.PrefsPath, d.View, logger)
	d.Hub = NewWSHub(d.View, d.Metrics, logger)

	var sink SnapshotSink = nopSink{}
	if cfg.InfluxWrite != nil {
		d.Writer = NewInfluxWriter(cfg.InfluxWrite, cfg.InfluxMeasurement, logger)
		sink = d.Writer
	}
	d.Telemetry = NewTelemetryPoller(d.Upstream, d.View, d.Status, TelemetryConfig{
		Interval: cfg.PollInterval,
		Series:   NewRollingSeries(cfg.HistorySize),
		Sink:     sink,
		Metrics:  d.Metrics,
		Logger:   logger,
	})

	d.handler = newRouter(routes{
		api: &actions{
			pump:    d.Pump,
			crop:    d.Crop,
			prefs:   d.Prefs,
			view:    d.View,
			up:      d.Upstream,
			decoder: form.NewDecoder(),
			log:     logger,
		},
		ws:      d.Hub,
		health:  newHealthHandler(cfg.MQTT, d.Writer, d.Telemetry, d.Upstream),
		ready:   newReadyHandler(cfg.MQTT, d.Writer, d.Telemetry, 2*time.Second),
		history: newHistoryHandler(cfg.InfluxQuery, cfg.InfluxBucket, cfg.InfluxMeasurement),
		metrics: d.Metrics.Handler(),
		index:   indexHandler(),
	}, logger)
	return d
}

func (d *Dashboard) Handler() http.Handler { return d.handler }

// Run restores preferences, starts polling and serves HTTP until ctx is done.
func (d *Dashboard) Run(ctx context.Context) error {
	d.Prefs.ApplyOnLoad()
	// nothing pings the local node; it is shown as connected until the first poll
	d.Status.Update(ElemLocalLink, true, LinkVocabulary)

	go d.Telemetry.Run(ctx)

	hs := &http.Server{
		Addr:              ":" + strconv.Itoa(d.cfg.HTTPPort),
		Handler:           d.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		d.log.Printf("dashboard: HTTP listening on :%d (backend %s)", d.cfg.HTTPPort, d.cfg.BackendURL)
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	d.log.Printf("dashboard: shutting down...")

	d.Pump.Stop()
	d.Hub.Stop()
	shCtx, cancel := context.WithTimeout(context.Background(), d.cfg.ShutdownWait)
	defer cancel()
	if err := hs.Shutdown(shCtx); err != nil {
		return err
	}
	d.Writer.Flush()
	return nil
}
