package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestTelegramNotifierSuccess(t *testing.T) {
	received := make(map[string]string)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bottoken/sendMessage" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode request body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL+"/", time.Second, testLogger())
	summary := Summary{RunID: "run-1", RowsRead: 10, RowsOut: 8, Instruments: 2}

	if err := notifier.Notify(context.Background(), summary); err != nil {
		t.Fatalf("Notify should succeed: %v", err)
	}

	if received["chat_id"] != "chat" {
		t.Fatalf("unexpected chat_id: %#v", received)
	}
	if !strings.Contains(received["text"], "run-1") {
		t.Fatalf("text should mention the run id: %q", received["text"])
	}
}

func TestTelegramNotifierError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "description": "chat not found"})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())
	err := notifier.Notify(context.Background(), Summary{})
	if err == nil || !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("ok=false should fail with the description, got %v", err)
	}
}

func TestTelegramNotifierStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), Summary{}); err == nil {
		t.Fatal("non-2xx should fail")
	}
}

func TestRenderMessage(t *testing.T) {
	ok := RenderMessage(Summary{
		RunID:       "abc",
		Source:      "raw.csv",
		Duration:    1500 * time.Millisecond,
		RowsRead:    100,
		RowsOut:     90,
		Instruments: 3,
		Excluded:    map[string]float64{"SOL-USD": 0.5123, "ADA-USD": 0.75},
	})
	for _, want := range []string{"succeeded", "Run: abc", "Duration: 1.5s", "Rows: 100 read, 90 written", "Excluded (2)", "ADA-USD 75.00% missing", "SOL-USD 51.23% missing"} {
		if !strings.Contains(ok, want) {
			t.Fatalf("message missing %q:\n%s", want, ok)
		}
	}
	if strings.Index(ok, "ADA-USD") > strings.Index(ok, "SOL-USD") {
		t.Fatalf("exclusions should be sorted:\n%s", ok)
	}

	failed := RenderMessage(Summary{Err: errors.New("classification maps incomplete: NOPE")})
	if !strings.Contains(failed, "FAILED") || !strings.Contains(failed, "NOPE") {
		t.Fatalf("failure message incomplete:\n%s", failed)
	}
	if strings.Contains(failed, "Rows:") {
		t.Fatalf("failure message should not report rows:\n%s", failed)
	}
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}
