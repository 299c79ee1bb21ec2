package server_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"alchemy/internal/assets"
	"alchemy/internal/campaign"
	"alchemy/internal/config"
	"alchemy/internal/logging"
	"alchemy/internal/progress"
	"alchemy/internal/server"
	"alchemy/internal/services/imagen"
	"alchemy/internal/services/qloo"
	"alchemy/internal/services/veo"
	"alchemy/internal/testsupport"
)

type stubCultural struct{}

func (stubCultural) Lookup(ctx context.Context, city, country string) (qloo.Analysis, error) {
	return qloo.Analysis{}, nil
}

type stubImages struct{}

func (stubImages) Generate(ctx context.Context, prompt string) (imagen.Image, error) {
	return imagen.Image{Data: []byte("png"), MimeType: "image/png"}, nil
}

type stubVideos struct{}

func (stubVideos) Generate(ctx context.Context, prompt string, image []byte, mimeType string) (veo.Operation, error) {
	return veo.Operation{Name: "operations/test"}, nil
}

func (stubVideos) Poll(ctx context.Context, op veo.Operation) (veo.Operation, error) {
	op.Done = true
	op.VideoURI = "https://files.example/out.mp4"
	return op, nil
}

func (stubVideos) Download(ctx context.Context, uri string) ([]byte, error) {
	return []byte("mp4"), nil
}

func startDaemon(t *testing.T, opts ...testsupport.ConfigOption) (*server.Daemon, *progress.Bus, string) {
	t.Helper()
	opts = append([]testsupport.ConfigOption{testsupport.WithPollBudget(2, 1, 1, 2)}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	return startDaemonWithConfig(t, cfg)
}

func startDaemonWithConfig(t *testing.T, cfg *config.Config) (*server.Daemon, *progress.Bus, string) {
	t.Helper()
	store, err := assets.Open(cfg)
	if err != nil {
		t.Fatalf("open asset store: %v", err)
	}
	bus := progress.NewBus(logging.NewNop())
	runner := campaign.NewRunner(cfg, bus, stubCultural{}, stubImages{}, stubVideos{}, store)
	daemon, err := server.New(cfg, logging.NewNop(), bus, runner, store)
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := daemon.Start(ctx); err != nil {
		t.Fatalf("start daemon: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		_ = daemon.Close()
	})
	return daemon, bus, "http://" + daemon.APIAddress()
}

func TestStatusEndpoint(t *testing.T) {
	_, _, base := startDaemon(t)

	resp, err := http.Get(base + "/api/status")
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code = %d", resp.StatusCode)
	}
	var status server.Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.Running {
		t.Error("expected running daemon")
	}
	if status.PID == 0 {
		t.Error("expected pid")
	}
}

func TestPushRejectsEmptyMessage(t *testing.T) {
	_, _, base := startDaemon(t)

	body := bytes.NewBufferString(`{"session":"s1","message":"   "}`)
	resp, err := http.Post(base+"/api/progress/push", "application/json", body)
	if err != nil {
		t.Fatalf("POST push: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status code = %d", resp.StatusCode)
	}
	var ack struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if ack.OK {
		t.Error("expected ok=false")
	}
}

func TestStreamDeliversPushedMessages(t *testing.T) {
	_, _, base := startDaemon(t)

	req, err := http.NewRequest(http.MethodGet, base+"/api/progress?session=s1", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET stream: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	hello := readDataEvent(t, reader)
	if !strings.Contains(hello, "SSE connected for session: s1") {
		t.Fatalf("unexpected hello event %q", hello)
	}

	for _, msg := range []string{"step1", "step2"} {
		payload := fmt.Sprintf(`{"session":"s1","message":%q}`, msg)
		pushResp, err := http.Post(base+"/api/progress/push", "application/json", strings.NewReader(payload))
		if err != nil {
			t.Fatalf("POST push: %v", err)
		}
		pushResp.Body.Close()
	}

	var got []string
	for len(got) < 2 {
		event := readDataEvent(t, reader)
		var decoded progress.Message
		if err := json.Unmarshal([]byte(event), &decoded); err != nil {
			t.Fatalf("decode event %q: %v", event, err)
		}
		got = append(got, decoded.Text)
	}
	if got[0] != "step1" || got[1] != "step2" {
		t.Errorf("messages out of order: %v", got)
	}
}

// readDataEvent skips comment heartbeats and blank separators, returning
// the JSON payload of the next data line.
func readDataEvent(t *testing.T, reader *bufio.Reader) string {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("read event line: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		if strings.HasPrefix(line, "data: ") {
			return strings.TrimPrefix(line, "data: ")
		}
	}
	t.Fatal("timed out waiting for data event")
	return ""
}

func TestStreamDisconnectUnsubscribes(t *testing.T) {
	_, bus, base := startDaemon(t)

	resp, err := http.Get(base + "/api/progress?session=s1")
	if err != nil {
		t.Fatalf("GET stream: %v", err)
	}
	waitForSubscriberCount(t, bus, "s1", 1)

	resp.Body.Close()
	waitForSubscriberCount(t, bus, "s1", 0)
}

func waitForSubscriberCount(t *testing.T, bus *progress.Bus, session string, want int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if bus.SubscriberCount(session) == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("subscriber count for %q = %d, want %d", session, bus.SubscriberCount(session), want)
}

func TestStreamDeliversBurstInOrder(t *testing.T) {
	_, bus, base := startDaemon(t)

	resp, err := http.Get(base + "/api/progress?session=s1")
	if err != nil {
		t.Fatalf("GET stream: %v", err)
	}
	defer resp.Body.Close()
	waitForSubscriberCount(t, bus, "s1", 1)

	reader := bufio.NewReader(resp.Body)
	readDataEvent(t, reader) // hello

	const burst = 50
	for i := 0; i < burst; i++ {
		bus.Publish("s1", progress.NewMessage(fmt.Sprintf("update %d", i)))
	}

	for i := 0; i < burst; i++ {
		var decoded progress.Message
		if err := json.Unmarshal([]byte(readDataEvent(t, reader)), &decoded); err != nil {
			t.Fatalf("decode event %d: %v", i, err)
		}
		if want := fmt.Sprintf("update %d", i); decoded.Text != want {
			t.Fatalf("event %d = %q, want %q", i, decoded.Text, want)
		}
	}
}

func TestCampaignRunRejectsEmptyDemographics(t *testing.T) {
	_, bus, base := startDaemon(t)

	received := make(chan progress.Message, 4)
	defer bus.Subscribe("s1", func(msg progress.Message) { received <- msg })()

	resp, err := http.Post(base+"/api/campaign/run", "application/json",
		strings.NewReader(`{"session":"s1","demographics":[]}`))
	if err != nil {
		t.Fatalf("POST run: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status code = %d", resp.StatusCode)
	}

	select {
	case msg := <-received:
		if msg.Text != "Voice run aborted: no demographics provided." {
			t.Errorf("unexpected abort message %q", msg.Text)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for abort message")
	}
}

func TestCampaignRunDetachesAndCompletes(t *testing.T) {
	_, bus, base := startDaemon(t)

	done := make(chan struct{})
	defer bus.Subscribe("s1", func(msg progress.Message) {
		if msg.Text == "Voice flow complete." {
			close(done)
		}
	})()

	start := time.Now()
	resp, err := http.Post(base+"/api/campaign/run", "application/json",
		strings.NewReader(`{"session":"s1","demographics":[{"title":"Gen Z"}]}`))
	if err != nil {
		t.Fatalf("POST run: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code = %d", resp.StatusCode)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("run acknowledgement took %v, expected immediate return", elapsed)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for run completion")
	}
}

func TestAuthMiddleware(t *testing.T) {
	_, _, base := startDaemon(t, testsupport.WithAPIToken("secret"))

	resp, err := http.Get(base + "/api/status")
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status code = %d", resp.StatusCode)
	}

	req, err := http.NewRequest(http.MethodGet, base+"/api/status", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer secret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET status with token: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("authenticated status code = %d", resp.StatusCode)
	}
}

func TestAssetsEndpointListsSavedAssets(t *testing.T) {
	daemon, bus, base := startDaemon(t)
	_ = daemon

	done := make(chan struct{})
	defer bus.Subscribe("s1", func(msg progress.Message) {
		if msg.Text == "Voice flow complete." {
			close(done)
		}
	})()

	resp, err := http.Post(base+"/api/campaign/run", "application/json",
		strings.NewReader(`{"session":"s1","demographics":[{"title":"Gen Z"}]}`))
	if err != nil {
		t.Fatalf("POST run: %v", err)
	}
	resp.Body.Close()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for run completion")
	}

	listResp, err := http.Get(base + "/api/assets?session=s1")
	if err != nil {
		t.Fatalf("GET assets: %v", err)
	}
	defer listResp.Body.Close()
	var payload struct {
		Assets []*assets.Asset `json:"assets"`
	}
	if err := json.NewDecoder(listResp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode assets: %v", err)
	}
	if len(payload.Assets) != 2 {
		t.Errorf("expected 2 assets, got %d", len(payload.Assets))
	}
}
