// ABOUTME: Tests for the HTTP GET executor
// ABOUTME: Exercises query injection, identity headers, and timeout classification
package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGetSendsIdentityHeadersWhenInitialized(t *testing.T) {
	var gotHeaders http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	exec := New(1.0)
	identity := Identity{
		ClientID:          "abc",
		InstanceID:        "xyz",
		OffsetInitialized: true,
		RTTMS:             1.2345,
		OffsetMS:          -2.5,
		DesyncMS:          0.1,
	}
	_, err := exec.Get(context.Background(), srv.URL, "text/plain", nil, true, identity)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotHeaders.Get("X-Client-Id") != "abc" {
		t.Errorf("expected client id header, got %q", gotHeaders.Get("X-Client-Id"))
	}
	// 1.2345 is stored as 1.23449999..., so 3-decimal formatting yields 1.234.
	if gotHeaders.Get("X-Client-Rtt-Ms") != "1.234" {
		t.Errorf("expected 3-decimal rtt header, got %q", gotHeaders.Get("X-Client-Rtt-Ms"))
	}
}

func TestGetOmitsOffsetHeadersWhenUninitialized(t *testing.T) {
	var gotHeaders http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	exec := New(1.0)
	_, err := exec.Get(context.Background(), srv.URL, "text/plain", nil, true, Identity{ClientID: "a", InstanceID: "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotHeaders.Get("X-Client-Rtt-Ms") != "" {
		t.Error("expected no rtt header before offset is initialized")
	}
}

func TestGetAppendsQueryParams(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	exec := New(1.0)
	_, err := exec.Get(context.Background(), srv.URL+"?existing=1", "text/plain",
		map[string]string{"client_id": "c1"}, false, Identity{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotQuery != "existing=1&client_id=c1" {
		t.Errorf("expected merged query, got %q", gotQuery)
	}
}

func TestGetClassifiesHTTPStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	exec := New(1.0)
	_, err := exec.Get(context.Background(), srv.URL, "text/plain", nil, false, Identity{})
	var te *Error
	if err == nil {
		t.Fatal("expected error")
	}
	if !asTransportError(err, &te) || te.Kind != KindHTTPStatus {
		t.Errorf("expected http_status error, got %v", err)
	}
}

func TestGetClassifiesTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	exec := New(0.1)
	_, err := exec.Get(context.Background(), srv.URL, "text/plain", nil, false, Identity{})
	var te *Error
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !asTransportError(err, &te) || te.Kind != KindTimeout {
		t.Errorf("expected timeout error, got %v", err)
	}
}

func asTransportError(err error, target **Error) bool {
	te, ok := err.(*Error)
	if !ok {
		return false
	}
	*target = te
	return true
}
