package influxdb_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/stagelink-core/internal/infrastructure/config"
	"github.com/nerrad567/stagelink-core/internal/infrastructure/influxdb"
)

// testConfig matches the local dev InfluxDB from docker-compose.yml.
func testConfig() config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         "stagelink-dev-token",
		Org:           "stagelink",
		Bucket:        "metrics",
		BatchSize:     100,
		FlushInterval: 1,
	}
}

// errRecorder captures async write errors race-safely.
type errRecorder struct {
	mu  sync.Mutex
	err error
}

func (r *errRecorder) record(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

func (r *errRecorder) get() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// connectTest connects to the dev InfluxDB or skips when it is not
// running, and wires an error recorder for write assertions.
func connectTest(t *testing.T, cfg config.InfluxDBConfig) (*influxdb.Client, *errRecorder) {
	t.Helper()

	client, err := influxdb.Connect(cfg)
	if err != nil {
		t.Skipf("InfluxDB not available: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	rec := &errRecorder{}
	client.SetOnError(rec.record)
	return client, rec
}

// assertNoWriteError flushes and waits for the async error path.
func assertNoWriteError(t *testing.T, client *influxdb.Client, rec *errRecorder) {
	t.Helper()
	client.Flush()
	time.Sleep(100 * time.Millisecond)
	if err := rec.get(); err != nil {
		t.Errorf("write error = %v", err)
	}
}

func TestConnect(t *testing.T) {
	client, _ := connectTest(t, testConfig())

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect()")
	}
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	_, err := influxdb.Connect(cfg)
	if !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_InvalidURL(t *testing.T) {
	cfg := testConfig()
	cfg.URL = "http://127.0.0.1:59999"

	if _, err := influxdb.Connect(cfg); err == nil {
		t.Fatal("Connect() should return error for unreachable server")
	}
}

func TestConnect_BatchDefaults(t *testing.T) {
	for _, tc := range []struct {
		name          string
		batchSize     int
		flushInterval int
	}{
		{"zero values", 0, 0},
		{"negative values", -5, -1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.BatchSize = tc.batchSize
			cfg.FlushInterval = tc.flushInterval

			client, _ := connectTest(t, cfg)
			if !client.IsConnected() {
				t.Error("IsConnected() = false with fallback batch settings")
			}
		})
	}
}

func TestHealthCheck(t *testing.T) {
	client, _ := connectTest(t, testConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestHealthCheck_Cancelled(t *testing.T) {
	client, _ := connectTest(t, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := client.HealthCheck(ctx); err == nil {
		t.Error("HealthCheck() should return error for cancelled context")
	}
}

func TestWriteParameterChange(t *testing.T) {
	client, rec := connectTest(t, testConfig())

	// Numeric value lands in the "value" field.
	client.WriteParameterChange("/ch/01/mix/fader", 0.75, "api", "x32")
	assertNoWriteError(t, client, rec)
}

func TestWriteParameterChange_StringValue(t *testing.T) {
	client, rec := connectTest(t, testConfig())

	// String values land in "value_text" instead of "value".
	client.WriteParameterChange("/ch/01/config/name", "Kick", "mcp", "x32")
	assertNoWriteError(t, client, rec)
}

func TestWriteTransportStats(t *testing.T) {
	client, rec := connectTest(t, testConfig())

	client.WriteTransportStats("x32", 1500, 1480, 3, 0)
	assertNoWriteError(t, client, rec)
}

func TestWritePoint(t *testing.T) {
	client, rec := connectTest(t, testConfig())

	client.WritePoint(
		"custom_measurement",
		map[string]string{"source": "test"},
		map[string]any{"value": 99.9, "count": 5},
	)
	assertNoWriteError(t, client, rec)
}

func TestWritePointWithTime(t *testing.T) {
	client, rec := connectTest(t, testConfig())

	client.WritePointWithTime(
		"custom_measurement",
		map[string]string{"source": "test-with-time"},
		map[string]any{"value": 88.8},
		time.Now().Add(-1*time.Hour),
	)
	assertNoWriteError(t, client, rec)
}

func TestClose(t *testing.T) {
	cfg := testConfig()
	client, err := influxdb.Connect(cfg)
	if err != nil {
		t.Skipf("InfluxDB not available: %v", err)
	}

	client.WriteParameterChange("/ch/01/mix/on", true, "console", "x32")

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
}
