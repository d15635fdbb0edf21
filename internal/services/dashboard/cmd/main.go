package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/urfave/cli/v2"

	"github.com/LeonardoBeccarini/sdcc_dashboard/internal/services/dashboard"
	"github.com/LeonardoBeccarini/sdcc_dashboard/pkg/rabbitmq"
)

func main() {
	app := &cli.App{
		Name:    "irrigation-dashboard",
		Usage:   "web dashboard for the smart irrigation backend",
		Version: appVersion(),
		Flags:   flags(),
		Action: func(c *cli.Context) error {
			return run(loadConfig(c))
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(cfg Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := log.Default()
	dcfg := dashboard.Config{
		HTTPPort:     cfg.Port,
		BackendURL:   cfg.BackendURL,
		HTTPTimeout:  cfg.HTTPTimeout,
		PollInterval: cfg.PollInterval,
		HistorySize:  cfg.HistorySize,
		Breaker:      cfg.Breaker,
		PrefsPath:    cfg.PrefsPath,
		Logger:       logger,
	}

	// === InfluxDB ===
	if cfg.InfluxURL != "" {
		opts := influxdb2.DefaultOptions().
			SetBatchSize(uint(cfg.BatchSize)).
			SetFlushInterval(uint(cfg.FlushInterval.Milliseconds()))
		influx := influxdb2.NewClientWithOptions(cfg.InfluxURL, cfg.InfluxToken, opts)
		defer influx.Close()
		dcfg.InfluxWrite = influx.WriteAPI(cfg.InfluxOrg, cfg.InfluxBucket)
		dcfg.InfluxQuery = influx.QueryAPI(cfg.InfluxOrg)
		dcfg.InfluxBucket = cfg.InfluxBucket
		dcfg.InfluxMeasurement = cfg.InfluxMeasurement
		logger.Printf("dashboard: writing snapshots to %s/%s", cfg.InfluxURL, cfg.InfluxBucket)
	}

	// === MQTT ===
	if cfg.Rabbit.Host != "" {
		client, err := rabbitmq.NewRabbitMQConn(&cfg.Rabbit, ctx)
		if err != nil {
			return fmt.Errorf("mqtt connection error: %w", err)
		}
		defer rabbitmq.CloseRabbitMQConn(client)
		events := newEvents(client, cfg, logger)
		go events.Run(ctx)
		dcfg.MQTT = client
		dcfg.Events = events
	}

	return dashboard.New(dcfg).Run(ctx)
}

func newEvents(client mqtt.Client, cfg Config, logger *log.Logger) *dashboard.MQTTEvents {
	p := cfg.TopicPrefix
	return dashboard.NewMQTTEvents(
		rabbitmq.NewPublisher(client, p+"/pump"),
		rabbitmq.NewPublisher(client, p+"/crop"),
		rabbitmq.NewPublisher(client, p+"/status"),
		cfg.StatusRefresh,
		logger,
	)
}

func appVersion() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok || bi == nil {
		return "unknown"
	}
	if v := bi.Main.Version; v != "" && v != "(devel)" {
		return v
	}
	for _, s := range bi.Settings {
		if s.Key == "vcs.revision" {
			return s.Value
		}
	}
	return "unknown"
}
