package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"testing"
	"time"

	"github.com/coder/websocket"
)

func startTestServer(t *testing.T) *Server {
	t.Helper()
	server := NewServer(&Config{
		Addr:   "localhost:0",
		Logger: log.New(io.Discard, "", 0),
	})
	if err := server.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	t.Cleanup(func() { server.Stop() })

	time.Sleep(100 * time.Millisecond)
	return server
}

func TestServerStartStop(t *testing.T) {
	server := NewServer(&Config{
		Addr:   "localhost:0",
		Logger: log.New(io.Discard, "", 0),
	})
	if err := server.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	if server.GetAddr() == "" {
		t.Fatal("Server address is empty")
	}
	if err := server.Stop(); err != nil {
		t.Fatalf("Failed to stop server: %v", err)
	}
}

func TestStopWithoutStart(t *testing.T) {
	server := NewServer(&Config{
		Addr:   "localhost:0",
		Logger: log.New(io.Discard, "", 0),
	})
	if err := server.Stop(); err != nil {
		t.Fatalf("Stop on unstarted server failed: %v", err)
	}
}

func TestWebSocketWelcome(t *testing.T) {
	server := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws://"+server.GetAddr()+"/ws", nil)
	if err != nil {
		t.Fatalf("Failed to connect WebSocket: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	if count := server.ClientCount(); count != 1 {
		t.Errorf("Expected 1 client, got %d", count)
	}

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Failed to read welcome message: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Failed to unmarshal message: %v", err)
	}
	if msg.Type != MessageTypeStats {
		t.Errorf("Expected welcome type %s, got %s", MessageTypeStats, msg.Type)
	}
}

func TestCommitEventReachesClient(t *testing.T) {
	server := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws://"+server.GetAddr()+"/ws", nil)
	if err != nil {
		t.Fatalf("Failed to connect WebSocket: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	// Drain the welcome message.
	if _, _, err := conn.Read(ctx); err != nil {
		t.Fatalf("Failed to read welcome message: %v", err)
	}

	server.OperationCommitted("space1", 2, 5, false)

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Failed to read commit message: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Failed to unmarshal message: %v", err)
	}
	if msg.Type != MessageTypeCommit {
		t.Fatalf("Expected type %s, got %s", MessageTypeCommit, msg.Type)
	}
	var commit CommitData
	if err := json.Unmarshal(msg.Data, &commit); err != nil {
		t.Fatalf("Failed to unmarshal commit data: %v", err)
	}
	if commit.SpaceID != "space1" || commit.Deleted != 2 || commit.Inserted != 5 {
		t.Errorf("wrong commit data: %+v", commit)
	}
}

func TestEventCounters(t *testing.T) {
	server := startTestServer(t)

	server.OperationCommitted("space1", 1, 3, false)
	server.OperationCommitted("space1", 0, 2, true)
	server.SyncFailed("space1", errors.New("endpoint down"))

	stats := server.Stats()
	if stats.Operations != 2 {
		t.Errorf("Operations = %d, want 2", stats.Operations)
	}
	if stats.QuadsDeleted != 1 || stats.QuadsAdded != 5 {
		t.Errorf("quad counters wrong: %+v", stats)
	}
	if stats.SyncFailures != 1 {
		t.Errorf("SyncFailures = %d, want 1", stats.SyncFailures)
	}
}

func TestStatsEndpoint(t *testing.T) {
	server := startTestServer(t)
	server.OperationCommitted("space1", 0, 4, false)

	resp, err := http.Get("http://" + server.GetAddr() + "/stats")
	if err != nil {
		t.Fatalf("Failed to fetch stats: %v", err)
	}
	defer resp.Body.Close()

	var stats StatsData
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("Failed to decode stats: %v", err)
	}
	if stats.Operations != 1 || stats.QuadsAdded != 4 {
		t.Errorf("wrong stats: %+v", stats)
	}
}

func TestHealthEndpoint(t *testing.T) {
	server := startTestServer(t)

	resp, err := http.Get("http://" + server.GetAddr() + "/health")
	if err != nil {
		t.Fatalf("Failed to fetch health: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode health: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("wrong health status: %v", body)
	}
}
