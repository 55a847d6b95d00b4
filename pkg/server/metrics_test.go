package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestMetricsEndpoint(t *testing.T) {
	ts := setupTestServer(t, func(config *ServerConfig) {
		config.MetricsEnabled = true
		config.MetricsPort = 0
	})

	c := newTCPLineClient(t, ts.tcpAddr)
	defer c.close()
	register(t, c, "metr_user")

	transport := &http.Transport{DisableKeepAlives: true}
	defer transport.CloseIdleConnections()
	client := &http.Client{Transport: transport, Timeout: 5 * time.Second}

	base := "http://" + ts.srv.MetricsAddr().String()

	resp, err := client.Get(base + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("read /metrics body: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /metrics status %d", resp.StatusCode)
	}

	text := string(body)
	for _, want := range []string{
		"customtags_active_sessions 1",
		`customtags_connections_total{transport="tcp"} 1`,
		"customtags_lines_sent_total",
		"customtags_active_tag_sets",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("/metrics missing %q", want)
		}
	}

	resp, err = client.Get(base + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	var health struct {
		Status   string `json:"status"`
		Sessions int    `json:"sessions"`
		Channels int    `json:"channels"`
		TagSets  int    `json:"tag_sets"`
	}
	err = json.NewDecoder(resp.Body).Decode(&health)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("decode /health: %v", err)
	}
	if health.Status != "ok" {
		t.Fatalf("health status %q", health.Status)
	}
	if health.Sessions != 1 {
		t.Fatalf("health sessions = %d, want 1", health.Sessions)
	}
}
