package main

import (
	"flag"
	"fmt"
	"time"
)

type config struct {
	URL          string
	Token        string
	SearchURL    string
	SynthesisURL string
	Voice        string
	Timeout      time.Duration
	Verbose      bool
}

// loadConfig reads flags with environment fallbacks. getenv is injected
// so tests can run without touching the process environment.
func loadConfig(args []string, getenv func(string) string) (config, error) {
	fs := flag.NewFlagSet("talent-chat", flag.ContinueOnError)
	var cfg config
	fs.StringVar(&cfg.URL, "url", getenv("TALENTWIRE_WS_URL"), "websocket endpoint")
	fs.StringVar(&cfg.Token, "token", getenv("TALENTWIRE_TOKEN"), "auth token")
	fs.StringVar(&cfg.SearchURL, "search-url", getenv("TALENTWIRE_SEARCH_URL"), "cache-backed pagination endpoint")
	fs.StringVar(&cfg.SynthesisURL, "tts-url", getenv("TALENTWIRE_TTS_URL"), "speech synthesis endpoint")
	fs.StringVar(&cfg.Voice, "voice", envOr(getenv, "TALENTWIRE_VOICE", "ava"), "synthesis voice")
	fs.DurationVar(&cfg.Timeout, "timeout", 30*time.Second, "request timeout")
	fs.BoolVar(&cfg.Verbose, "v", false, "verbose logging")
	if err := fs.Parse(args); err != nil {
		return config{}, err
	}
	if cfg.URL == "" {
		return config{}, fmt.Errorf("websocket endpoint is required (-url or TALENTWIRE_WS_URL)")
	}
	if cfg.Token == "" {
		return config{}, fmt.Errorf("auth token is required (-token or TALENTWIRE_TOKEN)")
	}
	return cfg, nil
}

func envOr(getenv func(string) string, key, fallback string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return fallback
}
