package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zackedds/no-rulez-web/pkg/client"
)

type ConsoleConfig struct {
	APIBaseURL   string
	Timeout      time.Duration
	PollInterval time.Duration
}

func main() {
	cfg := &ConsoleConfig{
		APIBaseURL:   getEnv("API_BASE_URL", "http://localhost:8080"),
		Timeout:      90 * time.Second,
		PollInterval: 2 * time.Second,
	}

	api := client.New(cfg.APIBaseURL)
	api.HTTPClient.Timeout = cfg.Timeout

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err := api.Health(ctx)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Could not connect to API at %s: %v\nPlease ensure the API is running.\n", cfg.APIBaseURL, err)
		os.Exit(1)
	}

	p := tea.NewProgram(NewConsoleUI(cfg, api), tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
