package gcp

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yungbote/markupsync/internal/platform/logger"
)

func TestOpenEmulatorReadsMedia(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("alt") != "media" {
			t.Errorf("alt: want media got %q", r.URL.Query().Get("alt"))
		}
		switch r.URL.EscapedPath() {
		case "/storage/v1/b/models-bucket/o/models%2Fa%2Fcrm%2F1%2Fmarkup.csv":
			_, _ = io.WriteString(w, "model,segment\n")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	s := &Store{
		log:          logger.Nop(),
		bucket:       "models-bucket",
		storageMode:  StorageModeEmulator,
		emulatorHost: srv.URL,
		httpClient:   srv.Client(),
	}

	rc, err := s.Open(context.Background(), "models/a/crm/1/markup.csv")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	body, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(body) != "model,segment\n" {
		t.Fatalf("body: got %q", body)
	}

	_, err = s.Open(context.Background(), "models/a/crm/1/rules.csv")
	if !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("missing object: want ErrObjectNotFound got %v", err)
	}
}

func TestContentTypeForKey(t *testing.T) {
	for key, want := range map[string]string{
		"a/b/preprocessed_markup.csv": "text/csv",
		"a/REPORT.JSON":               "application/json",
		"a/b/":                        "",
	} {
		if got := contentTypeForKey(key); got != want {
			t.Fatalf("%s: want=%q got=%q", key, want, got)
		}
	}
}
