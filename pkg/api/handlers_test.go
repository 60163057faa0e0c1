package api

import (
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/adcs-fsw/rwnullspace/pkg/effector"
	customlog "github.com/adcs-fsw/rwnullspace/pkg/log"
	"github.com/adcs-fsw/rwnullspace/pkg/messaging"
	"github.com/adcs-fsw/rwnullspace/pkg/rwnullspace"
	"github.com/adcs-fsw/rwnullspace/pkg/scheduler"
	"github.com/adcs-fsw/rwnullspace/services"
)

const moduleYAML = `
version: "1.0"
config_id: "api-test"
rw_null_space:
  num_wheels: 4
  omega_gain: 0.5
  gs_matrix: [1, 0, 0, 0.57735,
              0, 1, 0, 0.57735,
              0, 0, 1, 0.57735]
  input_rw_commands: "controlTorqueRaw"
  input_rw_speeds: "reactionwheel_speeds"
  output_control_name: "controlTorque"
`

var testChannels = rwnullspace.Channels{
	RWCommands: "controlTorqueRaw",
	RWSpeeds:   "reactionwheel_speeds",
	Output:     "controlTorque",
}

type staticMetrics []scheduler.TaskMetrics

func (m staticMetrics) Metrics() []scheduler.TaskMetrics { return m }

type fixture struct {
	app    *fiber.App
	bus    *messaging.Bus
	module *rwnullspace.Module
	path   string
}

func testLogger() customlog.Logger {
	return customlog.NewWriterLogger("error", io.Discard)
}

func newFixture(t *testing.T, initialize bool) *fixture {
	t.Helper()
	logger := testLogger()
	bus := messaging.NewBus(logger)

	cfg, err := rwnullspace.NewConfig([]float64{
		1, 0, 0, 0.57735,
		0, 1, 0, 0.57735,
		0, 0, 1, 0.57735,
	}, 4, 0.5, testChannels)
	if err != nil {
		t.Fatalf("NewConfig failed: %v", err)
	}
	module := rwnullspace.New("", cfg, bus, logger)
	if initialize {
		if err := module.Initialize(); err != nil {
			t.Fatalf("Initialize failed: %v", err)
		}
	}

	path := filepath.Join(t.TempDir(), "rw_null_space.yaml")
	if err := os.WriteFile(path, []byte(moduleYAML), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	svc, err := services.NewNullSpaceConfigService(path, logger)
	if err != nil {
		t.Fatalf("NewNullSpaceConfigService failed: %v", err)
	}

	app := NewApp("rwnullspace-test")
	metrics := staticMetrics{{Name: "rwNullSpace", StepCount: 3, LastCallTime: 200}}
	RegisterStatusRoutes(app, module, bus, metrics, logger)
	RegisterConfigRoutes(app, svc, logger)

	return &fixture{app: app, bus: bus, module: module, path: path}
}

func (f *fixture) do(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := f.app.Test(req, -1)
	if err != nil {
		t.Fatalf("Request %s %s failed: %v", req.Method, req.URL.Path, err)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}
	return resp, body
}

func TestHealth(t *testing.T) {
	f := newFixture(t, false)
	resp, _ := f.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 before Initialize, got %d", resp.StatusCode)
	}

	f = newFixture(t, true)
	resp, _ = f.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
}

func TestGetProjector(t *testing.T) {
	f := newFixture(t, true)

	resp, body := f.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/nullspace/projector", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", resp.StatusCode, body)
	}

	var got ProjectorResponse
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if got.NumWheels != 4 || got.OmegaGain != 0.5 {
		t.Errorf("Unexpected header fields %+v", got)
	}
	if len(got.Projector) != 4 || len(got.Projector[0]) != 4 {
		t.Fatalf("Expected 4x4 projector, got %d rows", len(got.Projector))
	}
	if len(got.PseudoInverse) != 3 || len(got.PseudoInverse[0]) != 4 {
		t.Errorf("Expected 3x4 pseudo-inverse, got %d rows", len(got.PseudoInverse))
	}
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			if math.Abs(got.Projector[i][j]-f.module.Projector().At(i, j)) > 1e-15 {
				t.Errorf("P[%d][%d] mismatch", i, j)
			}
		}
	}
	if got.Residual > 1e-9 {
		t.Errorf("Residual too large: %g", got.Residual)
	}
}

func TestGetProjectorBeforeInitialize(t *testing.T) {
	f := newFixture(t, false)
	resp, _ := f.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/nullspace/projector", nil))
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", resp.StatusCode)
	}
}

func TestGetChannelsAndMetrics(t *testing.T) {
	f := newFixture(t, true)

	resp, body := f.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/channels", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var channels struct {
		Channels []messaging.ChannelInfo `json:"channels"`
	}
	if err := json.Unmarshal(body, &channels); err != nil {
		t.Fatalf("Failed to decode channels: %v", err)
	}
	if len(channels.Channels) != 1 || channels.Channels[0].Name != "controlTorque" {
		t.Errorf("Unexpected channels %+v", channels.Channels)
	}

	resp, body = f.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/scheduler/metrics", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var metrics struct {
		Tasks []scheduler.TaskMetrics `json:"tasks"`
	}
	if err := json.Unmarshal(body, &metrics); err != nil {
		t.Fatalf("Failed to decode metrics: %v", err)
	}
	if len(metrics.Tasks) != 1 || metrics.Tasks[0].StepCount != 3 {
		t.Errorf("Unexpected metrics %+v", metrics.Tasks)
	}
}

func TestConfigRoutes(t *testing.T) {
	f := newFixture(t, true)

	resp, body := f.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/config/nullspace", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if string(body) != moduleYAML {
		t.Errorf("Unexpected YAML body %q", body)
	}

	req := httptest.NewRequest(http.MethodPut, "/api/v1/config/nullspace", strings.NewReader("rw_null_space: ["))
	req.Header.Set(fiber.HeaderContentType, "application/x-yaml")
	resp, _ = f.do(t, req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad YAML, got %d", resp.StatusCode)
	}

	req = httptest.NewRequest(http.MethodPut, "/api/v1/config/nullspace", nil)
	resp, _ = f.do(t, req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty body, got %d", resp.StatusCode)
	}

	degenerate := strings.Replace(moduleYAML, "0, 0, 1, 0.57735]", "0, 0, 0, 0]", 1)
	req = httptest.NewRequest(http.MethodPut, "/api/v1/config/nullspace", strings.NewReader(degenerate))
	resp, _ = f.do(t, req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for degenerate geometry, got %d", resp.StatusCode)
	}

	staged := strings.Replace(moduleYAML, "omega_gain: 0.5", "omega_gain: 0.1", 1)
	req = httptest.NewRequest(http.MethodPut, "/api/v1/config/nullspace", strings.NewReader(staged))
	resp, body = f.do(t, req)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d: %s", resp.StatusCode, body)
	}
	if f.module.Config().OmegaGain() != 0.5 {
		t.Error("Running module changed gain before restart")
	}
	onDisk, _ := os.ReadFile(f.path)
	if string(onDisk) != staged {
		t.Error("Staged config was not persisted")
	}
}

func TestOutputStreamBroadcast(t *testing.T) {
	logger := testLogger()
	bus := messaging.NewBus(logger)
	out, err := messaging.Create[effector.Request](bus, "controlTorque", "rwNullSpace")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	stream, err := NewOutputStream(bus, "controlTorque", logger)
	if err != nil {
		t.Fatalf("NewOutputStream failed: %v", err)
	}
	defer stream.Close()

	ch, unsubscribe := stream.subscribe()
	if stream.Clients() != 1 {
		t.Fatalf("Expected 1 client, got %d", stream.Clients())
	}

	out.Write(effector.Request{EffectorRequest: effector.MustVector(0.25, -0.5)}, 1500)

	var msg OutputMessage
	select {
	case data := <-ch:
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("Failed to decode output message: %v", err)
		}
	default:
		t.Fatal("No message broadcast")
	}
	if msg.Channel != "controlTorque" || msg.WriteClock != 1500 || msg.WriteCount != 1 {
		t.Errorf("Unexpected message %+v", msg)
	}
	if len(msg.Values) != 2 || msg.Values[1] != -0.5 {
		t.Errorf("Unexpected values %v", msg.Values)
	}

	// A full client buffer drops instead of blocking the producer
	for i := 0; i < clientBuffer+4; i++ {
		out.Write(effector.Request{}, uint64(i))
	}
	if len(ch) != clientBuffer {
		t.Errorf("Expected %d buffered messages, got %d", clientBuffer, len(ch))
	}

	unsubscribe()
	if stream.Clients() != 0 {
		t.Errorf("Expected 0 clients after unsubscribe, got %d", stream.Clients())
	}
}

func TestOutputStreamRequiresChannel(t *testing.T) {
	bus := messaging.NewBus(testLogger())
	if _, err := NewOutputStream(bus, "missing", testLogger()); err == nil {
		t.Error("Expected error for unknown channel")
	}
}
