package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/smartprice/pricelist/internal/common"
)

func agenticServer(t *testing.T, status int, body string) *AgenticClient {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return NewAgenticClient(AgenticConfig{Endpoint: srv.URL, APIKey: "k"}, nil)
}

func TestAgenticParseDocument(t *testing.T) {
	var seenAuth, seenPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("multipart parse: %v", err)
		}
		seenAuth = r.Header.Get("Authorization")
		seenPrompt = r.FormValue("prompt")
		if _, _, err := r.FormFile("document"); err != nil {
			t.Errorf("document part missing: %v", err)
		}
		_, _ = w.Write([]byte(`{"products": []}`))
	}))
	defer srv.Close()

	c := NewAgenticClient(AgenticConfig{Endpoint: srv.URL, APIKey: "secret"}, nil)
	raw, err := c.ParseDocument(context.Background(), "/in/kale.pdf", []byte("%PDF-1.4"), "extract rows")
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	if raw != `{"products": []}` {
		t.Errorf("raw = %q", raw)
	}
	if seenAuth != "Basic secret" {
		t.Errorf("auth header = %q", seenAuth)
	}
	if seenPrompt != "extract rows" {
		t.Errorf("prompt field = %q", seenPrompt)
	}
}

func TestAgenticClassifiesStatusCodes(t *testing.T) {
	tests := []struct {
		status    int
		transient bool
	}{
		{http.StatusInternalServerError, true},
		{http.StatusTooManyRequests, true},
		{http.StatusUnauthorized, false},
		{http.StatusUnprocessableEntity, false},
	}
	for _, tt := range tests {
		c := agenticServer(t, tt.status, "nope")
		_, err := c.ParseDocument(context.Background(), "/in/kale.pdf", []byte("%PDF"), "p")
		if err == nil {
			t.Fatalf("status %d: ParseDocument returned nil error", tt.status)
		}
		if common.IsTransient(err) != tt.transient {
			t.Errorf("status %d: transient = %v, want %v (err %v)",
				tt.status, common.IsTransient(err), tt.transient, err)
		}
		if !tt.transient && !common.IsPermanent(err) {
			t.Errorf("status %d: err %v not classified permanent", tt.status, err)
		}
	}
}

func TestAgenticConnectionFailureIsTransient(t *testing.T) {
	// Closed port: the dial fails immediately.
	c := NewAgenticClient(AgenticConfig{Endpoint: "http://127.0.0.1:1/parse"}, nil)
	_, err := c.ParseDocument(context.Background(), "/in/kale.pdf", []byte("%PDF"), "p")
	if err == nil {
		t.Fatal("ParseDocument returned nil error, want dial failure")
	}
	if !common.IsTransient(err) {
		t.Errorf("dial failure %v not classified transient", err)
	}
}
