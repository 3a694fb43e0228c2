package netx

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDownload(t *testing.T) {
	t.Run("success 200 OK", func(t *testing.T) {
		var gotMethod string
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
			_, _ = w.Write([]byte(`{"schema":"x"}`))
		}))
		defer ts.Close()

		path := filepath.Join(t.TempDir(), "backup.json")
		if err := Download(ts.URL+"/some/presigned?X-Amz-Signature=abc", path); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if gotMethod != http.MethodGet {
			t.Fatalf("method = %q, want GET", gotMethod)
		}
		b, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if string(b) != `{"schema":"x"}` {
			t.Fatalf("body = %q", string(b))
		}
	})

	t.Run("non-200 -> error", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte("expired"))
		}))
		defer ts.Close()

		path := filepath.Join(t.TempDir(), "backup.json")
		err := Download(ts.URL, path)
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if !strings.Contains(err.Error(), "403") || !strings.Contains(err.Error(), "expired") {
			t.Fatalf("error should mention status and body, got %v", err)
		}
		if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
			t.Fatal("no file must be written on failure")
		}
	})

	t.Run("bad url -> error", func(t *testing.T) {
		if err := Download("http://[::1]:namedport", filepath.Join(t.TempDir(), "x")); err == nil {
			t.Fatal("expected error for malformed URL")
		}
	})
}
