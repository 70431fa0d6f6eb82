package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ShayCichocki/subagent/pkg/models"
)

// fakeTransport is an in-memory Transport scripted by tests. onSend, if set,
// receives each decoded outbound request and may push response lines.
type fakeTransport struct {
	mu     sync.Mutex
	sent   []request
	onSend func(req request)

	lines  chan []byte
	done   chan struct{}
	closed bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		lines: make(chan []byte, 16),
		done:  make(chan struct{}),
	}
}

func (f *fakeTransport) Send(line []byte) error {
	var req request
	if err := json.Unmarshal(line, &req); err != nil {
		return err
	}
	f.mu.Lock()
	f.sent = append(f.sent, req)
	onSend := f.onSend
	f.mu.Unlock()
	if onSend != nil {
		onSend(req)
	}
	return nil
}

func (f *fakeTransport) setOnSend(fn func(req request)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onSend = fn
}

func (f *fakeTransport) Lines() <-chan []byte { return f.lines }

func (f *fakeTransport) Done() <-chan struct{} { return f.done }

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.done)
		close(f.lines)
	}
	return nil
}

func (f *fakeTransport) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// respond pushes a result response line for the given request id.
func (f *fakeTransport) respond(id int64, result any) {
	payload, _ := json.Marshal(result)
	line, _ := json.Marshal(response{Jsonrpc: jsonrpcVersion, ID: id, Result: payload})
	f.lines <- line
}

func (f *fakeTransport) sentRequests() []request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]request(nil), f.sent...)
}

// newTestGateway returns a gateway whose spawn produces the given transports
// in order, plus a counter of spawn attempts.
func newTestGateway(t *testing.T, timeout time.Duration, transports ...Transport) (*Gateway, *int) {
	t.Helper()
	g := NewGateway(GatewayConfig{CallTimeout: timeout})
	spawns := 0
	g.spawn = func(desc models.ServerDescriptor) (Transport, error) {
		if spawns >= len(transports) {
			t.Fatalf("unexpected spawn of %s", desc.Name)
		}
		tr := transports[spawns]
		spawns++
		return tr, nil
	}
	return g, &spawns
}

func TestCallToolNotConnected(t *testing.T) {
	g, spawns := newTestGateway(t, time.Second)

	_, err := g.CallTool(context.Background(), "ghost", "list_directory", nil)
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	if *spawns != 0 {
		t.Errorf("a failed lookup must not spawn processes, got %d spawns", *spawns)
	}
}

func TestCallToolRoundTrip(t *testing.T) {
	ft := newFakeTransport()
	ft.onSend = func(req request) {
		ft.respond(req.ID, map[string]any{"entries": []string{"a.go", "b.go"}})
	}
	g, _ := newTestGateway(t, time.Second, ft)

	if err := g.Connect(models.ServerDescriptor{Name: "fs", Command: "fake"}); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	result, err := g.CallTool(context.Background(), "fs", "list_directory", map[string]any{"path": "."})
	if err != nil {
		t.Fatalf("CallTool failed: %v", err)
	}

	m, ok := result.(map[string]any)
	if !ok {
		t.Fatalf("unexpected result type %T", result)
	}
	if _, ok := m["entries"]; !ok {
		t.Errorf("missing entries in result: %v", m)
	}

	sent := ft.sentRequests()
	if len(sent) != 1 {
		t.Fatalf("expected 1 request, got %d", len(sent))
	}
	if sent[0].Method != "tools/call" {
		t.Errorf("method = %q, want tools/call", sent[0].Method)
	}
	if sent[0].Jsonrpc != "2.0" {
		t.Errorf("jsonrpc = %q, want 2.0", sent[0].Jsonrpc)
	}
}

func TestReadResourceMethodSelector(t *testing.T) {
	ft := newFakeTransport()
	ft.onSend = func(req request) {
		ft.respond(req.ID, "file contents")
	}
	g, _ := newTestGateway(t, time.Second, ft)

	if err := g.Connect(models.ServerDescriptor{Name: "fs", Command: "fake"}); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	result, err := g.ReadResource(context.Background(), "fs", "file:///tmp/x")
	if err != nil {
		t.Fatalf("ReadResource failed: %v", err)
	}
	if result != "file contents" {
		t.Errorf("result = %v", result)
	}

	sent := ft.sentRequests()
	if sent[0].Method != "resources/read" {
		t.Errorf("method = %q, want resources/read", sent[0].Method)
	}
}

func TestCallToolTimeout(t *testing.T) {
	ft := newFakeTransport() // never responds
	g, _ := newTestGateway(t, 50*time.Millisecond, ft)

	if err := g.Connect(models.ServerDescriptor{Name: "slow", Command: "fake"}); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	start := time.Now()
	_, err := g.CallTool(context.Background(), "slow", "list_directory", nil)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("timeout took far longer than configured")
	}

	// A timeout abandons the wait; it must not kill the provider.
	if ft.isClosed() {
		t.Error("provider transport was closed by a timeout")
	}
	if got := g.Servers(); len(got) != 1 {
		t.Errorf("provider should remain connected after timeout, got %v", got)
	}
}

func TestLateResponseIsNotMispaired(t *testing.T) {
	ft := newFakeTransport()
	g, _ := newTestGateway(t, 50*time.Millisecond, ft)

	if err := g.Connect(models.ServerDescriptor{Name: "fs", Command: "fake"}); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	// First call times out.
	_, err := g.CallTool(context.Background(), "fs", "read_file", map[string]any{"path": "a"})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}

	// The late answer to the first call arrives now, then the second call
	// is answered with its own id. The late line must be dropped, not
	// paired with the second call.
	sent := ft.sentRequests()
	ft.respond(sent[0].ID, "stale answer")

	ft.setOnSend(func(req request) {
		ft.respond(req.ID, "fresh answer")
	})
	result, err := g.CallTool(context.Background(), "fs", "read_file", map[string]any{"path": "b"})
	if err != nil {
		t.Fatalf("second call failed: %v", err)
	}
	if result != "fresh answer" {
		t.Errorf("second call got %v, want the fresh answer", result)
	}
}

func TestResponseIDsAreDistinct(t *testing.T) {
	ft := newFakeTransport()
	ft.onSend = func(req request) {
		ft.respond(req.ID, req.ID)
	}
	g, _ := newTestGateway(t, time.Second, ft)

	if err := g.Connect(models.ServerDescriptor{Name: "fs", Command: "fake"}); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := g.CallTool(context.Background(), "fs", "read_file", nil); err != nil {
			t.Fatalf("call %d failed: %v", i, err)
		}
	}

	seen := make(map[int64]bool)
	for _, req := range ft.sentRequests() {
		if seen[req.ID] {
			t.Fatalf("request id %d reused", req.ID)
		}
		seen[req.ID] = true
	}
}

func TestCallToolProviderError(t *testing.T) {
	ft := newFakeTransport()
	ft.onSend = func(req request) {
		line, _ := json.Marshal(response{
			Jsonrpc: jsonrpcVersion,
			ID:      req.ID,
			Error:   &responseError{Code: -32601, Message: "unknown tool"},
		})
		ft.lines <- line
	}
	g, _ := newTestGateway(t, time.Second, ft)

	if err := g.Connect(models.ServerDescriptor{Name: "fs", Command: "fake"}); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	_, err := g.CallTool(context.Background(), "fs", "bogus", nil)
	if !errors.Is(err, ErrCallFailed) {
		t.Fatalf("expected ErrCallFailed, got %v", err)
	}
}

func TestMalformedLinesAreSkipped(t *testing.T) {
	ft := newFakeTransport()
	ft.onSend = func(req request) {
		ft.lines <- []byte("this is not json")
		ft.respond(req.ID, "ok")
	}
	g, _ := newTestGateway(t, time.Second, ft)

	if err := g.Connect(models.ServerDescriptor{Name: "fs", Command: "fake"}); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	result, err := g.CallTool(context.Background(), "fs", "read_file", nil)
	if err != nil {
		t.Fatalf("CallTool failed: %v", err)
	}
	if result != "ok" {
		t.Errorf("result = %v, want ok", result)
	}
}

func TestConnectAllContinuesPastSpawnFailure(t *testing.T) {
	good := newFakeTransport()
	g := NewGateway(GatewayConfig{CallTimeout: time.Second})
	g.spawn = func(desc models.ServerDescriptor) (Transport, error) {
		if desc.Name == "broken" {
			return nil, fmt.Errorf("%w: no such binary", ErrSpawn)
		}
		return good, nil
	}

	g.ConnectAll([]models.ServerDescriptor{
		{Name: "broken", Command: "missing"},
		{Name: "fs", Command: "fake"},
	})

	servers := g.Servers()
	if len(servers) != 1 || servers[0] != "fs" {
		t.Errorf("expected only fs connected, got %v", servers)
	}
}

func TestConnectAllDefaultsToFilesystemServer(t *testing.T) {
	ft := newFakeTransport()
	g := NewGateway(GatewayConfig{WorkspaceRoot: "/workspace", CallTimeout: time.Second})
	var spawned []models.ServerDescriptor
	g.spawn = func(desc models.ServerDescriptor) (Transport, error) {
		spawned = append(spawned, desc)
		return ft, nil
	}

	g.ConnectAll(nil)

	if len(spawned) != 1 {
		t.Fatalf("expected 1 default spawn, got %d", len(spawned))
	}
	if spawned[0].Name != "filesystem" {
		t.Errorf("default server name = %q", spawned[0].Name)
	}
	found := false
	for _, arg := range spawned[0].Args {
		if arg == "/workspace" {
			found = true
		}
	}
	if !found {
		t.Errorf("default server not rooted at workspace: %v", spawned[0].Args)
	}
}

func TestConnectSeedsStaticTools(t *testing.T) {
	ft := newFakeTransport()
	g, _ := newTestGateway(t, time.Second, ft)

	if err := g.Connect(models.ServerDescriptor{Name: "fs", Command: "fake"}); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	tools := g.AllTools()
	if len(tools) != len(seedTools) {
		t.Fatalf("expected %d seeded tools, got %d", len(seedTools), len(tools))
	}
	for _, st := range tools {
		if st.Server != "fs" {
			t.Errorf("tool attributed to %q, want fs", st.Server)
		}
	}
}

func TestAllToolsOrderedByServer(t *testing.T) {
	t1, t2 := newFakeTransport(), newFakeTransport()
	g, _ := newTestGateway(t, time.Second, t1, t2)

	if err := g.Connect(models.ServerDescriptor{Name: "zeta", Command: "fake"}); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if err := g.Connect(models.ServerDescriptor{Name: "alpha", Command: "fake"}); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	tools := g.AllTools()
	if len(tools) == 0 {
		t.Fatal("expected tools")
	}
	if tools[0].Server != "alpha" {
		t.Errorf("expected alpha first, got %s", tools[0].Server)
	}
	if tools[len(tools)-1].Server != "zeta" {
		t.Errorf("expected zeta last, got %s", tools[len(tools)-1].Server)
	}
}

func TestProviderExitRemovesServer(t *testing.T) {
	ft := newFakeTransport()
	g, _ := newTestGateway(t, time.Second, ft)

	if err := g.Connect(models.ServerDescriptor{Name: "fs", Command: "fake"}); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	// Simulate the provider process exiting.
	_ = ft.Close()

	deadline := time.After(time.Second)
	for len(g.Servers()) != 0 {
		select {
		case <-deadline:
			t.Fatal("exited provider was not removed")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if _, err := g.CallTool(context.Background(), "fs", "read_file", nil); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected after exit, got %v", err)
	}
}

func TestDisconnectIdempotent(t *testing.T) {
	ft := newFakeTransport()
	g, _ := newTestGateway(t, time.Second, ft)

	if err := g.Connect(models.ServerDescriptor{Name: "fs", Command: "fake"}); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	g.Disconnect()
	if !ft.isClosed() {
		t.Error("Disconnect should terminate provider processes")
	}
	if len(g.Servers()) != 0 || len(g.AllTools()) != 0 || len(g.AllResources()) != 0 {
		t.Error("Disconnect should clear all state")
	}

	// Second disconnect is a no-op.
	g.Disconnect()

	// A never-connected gateway can also disconnect safely.
	NewGateway(GatewayConfig{}).Disconnect()
}
