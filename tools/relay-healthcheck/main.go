package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/bloops-games/balloonbomb/internal/logging"
	"github.com/bloops-games/balloonbomb/internal/shutdown"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	URL     string        `envconfig:"BALLOON_HEALTH_URL" default:"http://127.0.0.1:8080/healthz"`
	Timeout time.Duration `envconfig:"BALLOON_HEALTH_TIMEOUT" default:"5s"`
}

type okResponse struct {
	Status string `json:"status"`
}

// Exits non-zero unless the relay answers 200 {"status":"ok"}.
func main() {
	ctx, cancel := shutdown.New()
	defer cancel()

	logger := logging.FromContext(ctx)
	config := Config{}
	if err := envconfig.Process("", &config); err != nil {
		logger.Fatalf("processing the config: %v", err)
	}

	client := &http.Client{
		Timeout: config.Timeout,
		Transport: &http.Transport{
			DisableCompression:    true,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 10 * time.Second,
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, config.URL, nil)
	if err != nil {
		logger.Fatalf("new request: %v", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		logger.Fatalf("client do: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = fmt.Fprintf(os.Stdout, "%d\n", resp.StatusCode)
		os.Exit(1)
	}

	var ok okResponse
	if err := json.NewDecoder(resp.Body).Decode(&ok); err != nil {
		logger.Fatalf("body decode: %v", err)
	}
	_, _ = fmt.Fprintln(os.Stdout, ok.Status)
	if ok.Status != "ok" {
		os.Exit(1)
	}
}
