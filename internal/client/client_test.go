package client

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

const mockStatusResponse = `{"status":"running","active_threads":3,"firmware_available":true,"timestamp":1755900000,"firmware_md5":"d41d8cd98f00b204e9800998ecf8427e","firmware_size":1048576}`

const mockVersionResponse = `{"version":"d41d8cd98f00b204e9800998ecf8427e","size":1048576,"filename":"firmware.bin","timestamp":1755900000}`

func TestNew(t *testing.T) {
	c := New("10.0.0.5", 8070)

	if c.BaseURL != "http://10.0.0.5:8070" {
		t.Errorf("BaseURL = %s, want http://10.0.0.5:8070", c.BaseURL)
	}
	if c.MaxRetries != DefaultMaxRetries {
		t.Errorf("MaxRetries = %d, want %d", c.MaxRetries, DefaultMaxRetries)
	}
	if c.HTTPClient.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", c.HTTPClient.Timeout, DefaultTimeout)
	}
}

func TestGetStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/status" {
			t.Errorf("path = %s, want /status", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(mockStatusResponse))
	}))
	defer srv.Close()

	c := NewWithURL(srv.URL)
	status, err := c.GetStatus()
	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}

	if status.Status != "running" {
		t.Errorf("Status = %s, want running", status.Status)
	}
	if status.ActiveThreads != 3 {
		t.Errorf("ActiveThreads = %d, want 3", status.ActiveThreads)
	}
	if !status.FirmwareAvailable {
		t.Error("FirmwareAvailable = false, want true")
	}
	if status.FirmwareMD5 != "d41d8cd98f00b204e9800998ecf8427e" {
		t.Errorf("FirmwareMD5 = %s", status.FirmwareMD5)
	}
	if status.FirmwareSize != 1048576 {
		t.Errorf("FirmwareSize = %d, want 1048576", status.FirmwareSize)
	}
}

func TestGetVersion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(mockVersionResponse))
	}))
	defer srv.Close()

	c := NewWithURL(srv.URL)
	ver, err := c.GetVersion()
	if err != nil {
		t.Fatalf("GetVersion() error = %v", err)
	}

	if ver.Version != "d41d8cd98f00b204e9800998ecf8427e" {
		t.Errorf("Version = %s", ver.Version)
	}
	if ver.Filename != "firmware.bin" {
		t.Errorf("Filename = %s, want firmware.bin", ver.Filename)
	}
	if ver.Size != 1048576 {
		t.Errorf("Size = %d, want 1048576", ver.Size)
	}
}

func TestHTTPErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"firmware not available"}`))
	}))
	defer srv.Close()

	c := NewWithURL(srv.URL)
	c.RetryDelay = time.Millisecond

	if _, err := c.GetVersion(); err == nil {
		t.Fatal("GetVersion() = nil error, want error on 404")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server called %d times, want 1 (no retry on HTTP error)", got)
	}
}

func TestTransportErrorRetried(t *testing.T) {
	// A server that is immediately closed leaves an unreachable address
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewWithURL(url)
	c.MaxRetries = 2
	c.RetryDelay = time.Millisecond
	c.MaxRetryDelay = 2 * time.Millisecond

	start := time.Now()
	_, err := c.GetStatus()
	if err == nil {
		t.Fatal("GetStatus() = nil error, want error for unreachable server")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("retries took %v, backoff not bounded", elapsed)
	}
}

func TestMalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status": running`))
	}))
	defer srv.Close()

	c := NewWithURL(srv.URL)
	if _, err := c.GetStatus(); err == nil {
		t.Fatal("GetStatus() = nil error, want parse error")
	}
}
