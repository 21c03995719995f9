package detector

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFrameSource_Snapshot(t *testing.T) {
	frame := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x01, 0x02, 0x03, 0x04}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		w.Write(frame)
	}))
	defer server.Close()

	got, err := NewFrameSource(server.URL).Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot returned error: %v", err)
	}
	if !bytes.Equal(got, frame) {
		t.Errorf("frame = %v, want %v", got, frame)
	}
}

func TestFrameSource_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "camera offline", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	if _, err := NewFrameSource(server.URL).Snapshot(context.Background()); err == nil {
		t.Fatal("expected error on 503 response")
	}
}

func TestFrameSource_EmptyFrame(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	if _, err := NewFrameSource(server.URL).Snapshot(context.Background()); err == nil {
		t.Fatal("expected error on empty body")
	}
}
