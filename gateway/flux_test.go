package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// fluxTestServer mimics the submit/poll/result endpoints. polls controls how
// many "Pending" responses precede the terminal status.
func fluxTestServer(t *testing.T, pendingPolls int, terminal string) (*httptest.Server, *int32) {
	t.Helper()
	var pollCount int32

	mux := http.NewServeMux()
	var srv *httptest.Server

	mux.HandleFunc(fluxModelPath, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method", http.StatusMethodNotAllowed)
			return
		}
		if r.Header.Get("x-key") != "flux-key" {
			http.Error(w, "missing key", http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{
			"id":          "job-1",
			"polling_url": srv.URL + "/poll",
		})
	})
	mux.HandleFunc("/poll", func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&pollCount, 1)
		resp := map[string]interface{}{"status": "Pending"}
		if int(n) > pendingPolls {
			resp["status"] = terminal
			resp["result"] = map[string]string{"sample": srv.URL + "/sample"}
		}
		json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/sample", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("image-bytes"))
	})

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &pollCount
}

func testClient(srvURL string, maxAttempts int) *Client {
	return NewClient(Config{
		FluxAPIKey:      "flux-key",
		FluxBaseURL:     srvURL,
		ReplicateAPIKey: "rep-key",
		ReplicateBase:   srvURL,
		PollInterval:    time.Millisecond,
		MaxPollAttempts: maxAttempts,
	})
}

func TestGenerateImage(t *testing.T) {
	srv, _ := fluxTestServer(t, 2, "Ready")
	c := testClient(srv.URL, 10)

	data, err := c.GenerateImage(context.Background(), "a fox", "16:9")
	if err != nil {
		t.Fatalf("GenerateImage error: %v", err)
	}
	if !bytes.Equal(data, []byte("image-bytes")) {
		t.Errorf("data = %q", data)
	}
}

func TestEditImage(t *testing.T) {
	srv, _ := fluxTestServer(t, 0, "Ready")
	c := testClient(srv.URL, 10)

	data, err := c.EditImage(context.Background(), []byte("base"), "add a hat", "16:9")
	if err != nil {
		t.Fatalf("EditImage error: %v", err)
	}
	if !bytes.Equal(data, []byte("image-bytes")) {
		t.Errorf("data = %q", data)
	}
}

func TestGenerateImage_PollingBounded(t *testing.T) {
	srv, polls := fluxTestServer(t, 1000, "Ready")
	c := testClient(srv.URL, 3)

	_, err := c.GenerateImage(context.Background(), "a fox", "16:9")

	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("error = %v, want ProviderError", err)
	}
	if !perr.Timeout {
		t.Errorf("Timeout = false, want true")
	}
	if got := atomic.LoadInt32(polls); got != 3 {
		t.Errorf("polls = %d, want exactly 3", got)
	}
}

func TestGenerateImage_JobFailed(t *testing.T) {
	for _, terminal := range []string{"Error", "Failed"} {
		t.Run(terminal, func(t *testing.T) {
			srv, _ := fluxTestServer(t, 0, terminal)
			c := testClient(srv.URL, 10)

			_, err := c.GenerateImage(context.Background(), "a fox", "16:9")
			var perr *ProviderError
			if !errors.As(err, &perr) {
				t.Fatalf("error = %v, want ProviderError", err)
			}
			if perr.Timeout {
				t.Error("job failure must not report as timeout")
			}
		})
	}
}

func TestGenerateImage_ContextCancelled(t *testing.T) {
	srv, _ := fluxTestServer(t, 1000, "Ready")
	c := NewClient(Config{
		FluxAPIKey:      "flux-key",
		FluxBaseURL:     srv.URL,
		PollInterval:    50 * time.Millisecond,
		MaxPollAttempts: 100,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.GenerateImage(ctx, "a fox", "16:9")
	if err == nil {
		t.Fatal("expected error after cancellation")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want wrapped deadline exceeded", err)
	}
}
