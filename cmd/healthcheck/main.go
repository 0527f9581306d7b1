// Package main probes the local server for container health checks.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/originalcoast/igbot/internal/config"
)

const probeTimeout = 3 * time.Second

func main() {
	ready := flag.Bool("ready", false, "probe /readyz instead of /livez")
	flag.Parse()

	port := os.Getenv(config.EnvPort)
	if port == "" {
		port = "3000"
	}

	path := "/livez"
	if *ready {
		path = "/readyz"
	}

	if err := probe(&http.Client{Timeout: probeTimeout}, fmt.Sprintf("http://localhost:%s%s", port, path)); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// probe returns an error unless url answers 200.
func probe(client *http.Client, url string) error {
	resp, err := client.Get(url) //nolint:noctx // One-shot probe bounded by the client timeout.
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check: %s returned %d", url, resp.StatusCode)
	}
	return nil
}
