package main

import (
	"testing"
	"time"
)

func fakeEnv(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func TestLoadConfigFromEnv(t *testing.T) {
	cfg, err := loadConfig(nil, fakeEnv(map[string]string{
		"TALENTWIRE_WS_URL": "wss://api.example.com/ws",
		"TALENTWIRE_TOKEN":  "tok",
		"TALENTWIRE_VOICE":  "nova",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.URL != "wss://api.example.com/ws" || cfg.Token != "tok" || cfg.Voice != "nova" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("default timeout = %v", cfg.Timeout)
	}
}

func TestFlagsOverrideEnv(t *testing.T) {
	cfg, err := loadConfig(
		[]string{"-url", "wss://flag.example.com/ws", "-token", "flagtok", "-timeout", "5s"},
		fakeEnv(map[string]string{
			"TALENTWIRE_WS_URL": "wss://env.example.com/ws",
			"TALENTWIRE_TOKEN":  "envtok",
		}),
	)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.URL != "wss://flag.example.com/ws" || cfg.Token != "flagtok" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("timeout = %v", cfg.Timeout)
	}
}

func TestLoadConfigRequiresURLAndToken(t *testing.T) {
	if _, err := loadConfig(nil, fakeEnv(nil)); err == nil {
		t.Fatal("expected error with no url")
	}
	if _, err := loadConfig(nil, fakeEnv(map[string]string{"TALENTWIRE_WS_URL": "wss://x/ws"})); err == nil {
		t.Fatal("expected error with no token")
	}
}
