package main

import (
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/LeonardoBeccarini/sdcc_dashboard/internal/services/dashboard"
	"github.com/LeonardoBeccarini/sdcc_dashboard/pkg/rabbitmq"
)

type Config struct {
	Port         int
	BackendURL   string
	HTTPTimeout  time.Duration
	PollInterval time.Duration
	HistorySize  int
	Breaker      dashboard.BreakerSettings
	PrefsPath    string

	// MQTT is disabled when Rabbit.Host is empty.
	Rabbit        rabbitmq.RabbitMQConfig
	TopicPrefix   string
	StatusRefresh time.Duration

	// Influx is disabled when InfluxURL is empty.
	InfluxURL         string
	InfluxToken       string
	InfluxOrg         string
	InfluxBucket      string
	InfluxMeasurement string
	BatchSize         int
	FlushInterval     time.Duration
}

func hostname() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return "irrigation-dashboard"
}

func flags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "port", Aliases: []string{"p"}, EnvVars: []string{"PORT"}, Value: 5000},
		&cli.StringFlag{Name: "backend-url", EnvVars: []string{"BACKEND_URL"}, Value: "http://localhost:5001"},
		&cli.DurationFlag{Name: "http-timeout", EnvVars: []string{"HTTP_TIMEOUT"}, Value: 10 * time.Second},
		&cli.DurationFlag{Name: "poll-interval", EnvVars: []string{"POLL_INTERVAL"}, Value: 30 * time.Second},
		&cli.IntFlag{Name: "history-size", EnvVars: []string{"HISTORY_SIZE"}, Value: 20},
		&cli.IntFlag{Name: "breaker-failures", EnvVars: []string{"BREAKER_FAILURES"}, Value: 3},
		&cli.DurationFlag{Name: "breaker-open", EnvVars: []string{"BREAKER_OPEN"}, Value: 20 * time.Second},
		&cli.DurationFlag{Name: "breaker-interval", EnvVars: []string{"BREAKER_INTERVAL"}, Value: time.Minute},
		&cli.StringFlag{Name: "prefs-path", EnvVars: []string{"PREFS_PATH"}, Value: "./dashboard.prefs.json"},

		&cli.StringFlag{Name: "mqtt-host", EnvVars: []string{"RABBITMQ_HOST"}},
		&cli.IntFlag{Name: "mqtt-port", EnvVars: []string{"RABBITMQ_PORT"}, Value: 1883},
		&cli.StringFlag{Name: "mqtt-user", EnvVars: []string{"RABBITMQ_USER"}, Value: "guest"},
		&cli.StringFlag{Name: "mqtt-password", EnvVars: []string{"RABBITMQ_PASSWORD"}, Value: "guest"},
		&cli.StringFlag{Name: "mqtt-client-id", EnvVars: []string{"HOSTNAME"}, Value: hostname()},
		&cli.StringFlag{Name: "topic-prefix", EnvVars: []string{"TOPIC_PREFIX"}, Value: "dashboard"},
		&cli.DurationFlag{Name: "status-refresh", EnvVars: []string{"STATUS_REFRESH"}, Value: 10 * time.Minute},

		&cli.StringFlag{Name: "influx-url", EnvVars: []string{"INFLUX_URL"}},
		&cli.StringFlag{Name: "influx-token", EnvVars: []string{"INFLUX_TOKEN"}},
		&cli.StringFlag{Name: "influx-org", EnvVars: []string{"INFLUX_ORG"}, Value: "sdcc"},
		&cli.StringFlag{Name: "influx-bucket", EnvVars: []string{"INFLUX_BUCKET"}, Value: "dashboard"},
		&cli.StringFlag{Name: "influx-measurement", EnvVars: []string{"INFLUX_MEASUREMENT"}, Value: "sensor_snapshot"},
		&cli.IntFlag{Name: "write-batch-size", EnvVars: []string{"WRITE_BATCH_SIZE"}, Value: 10},
		&cli.DurationFlag{Name: "write-flush-interval", EnvVars: []string{"WRITE_FLUSH_INTERVAL"}, Value: time.Second},
	}
}

func loadConfig(c *cli.Context) Config {
	return Config{
		Port:         c.Int("port"),
		BackendURL:   strings.TrimSpace(c.String("backend-url")),
		HTTPTimeout:  c.Duration("http-timeout"),
		PollInterval: c.Duration("poll-interval"),
		HistorySize:  c.Int("history-size"),
		Breaker: dashboard.BreakerSettings{
			Failures: c.Int("breaker-failures"),
			OpenFor:  c.Duration("breaker-open"),
			Interval: c.Duration("breaker-interval"),
		},
		PrefsPath: c.String("prefs-path"),

		Rabbit: rabbitmq.RabbitMQConfig{
			Host:     strings.TrimSpace(c.String("mqtt-host")),
			Port:     c.Int("mqtt-port"),
			User:     c.String("mqtt-user"),
			Password: c.String("mqtt-password"),
			ClientID: c.String("mqtt-client-id"),
		},
		TopicPrefix:   strings.TrimRight(c.String("topic-prefix"), "/"),
		StatusRefresh: c.Duration("status-refresh"),

		InfluxURL:         strings.TrimSpace(c.String("influx-url")),
		InfluxToken:       c.String("influx-token"),
		InfluxOrg:         c.String("influx-org"),
		InfluxBucket:      c.String("influx-bucket"),
		InfluxMeasurement: c.String("influx-measurement"),
		BatchSize:         c.Int("write-batch-size"),
		FlushInterval:     c.Duration("write-flush-interval"),
	}
}
