package config

import (
	"bytes"
	"flag"
	"io"
	"strings"
	"testing"
	"time"
)

func TestParseTimeout(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"", 0, false},
		{"30", 30 * time.Second, false},
		{"2.5", 2500 * time.Millisecond, false},
		{"45s", 45 * time.Second, false},
		{"1m30s", 90 * time.Second, false},
		{"-3", 0, true},
		{"-5s", 0, true},
		{"soon", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseTimeout(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseTimeout(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseTimeout(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestLoadFrom_EnvDefaults(t *testing.T) {
	t.Setenv("OLLAMA_API_URL", "http://gpu-box:11434/api/generate")
	t.Setenv("OLLAMA_TIMEOUT", "15")
	t.Setenv("OLLAMA_MODEL", "mistral")
	t.Setenv("A2A_ENABLED", "yes")

	cfg, err := LoadFrom(flag.NewFlagSet("test", flag.ContinueOnError), nil)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.OllamaAPIURL != "http://gpu-box:11434/api/generate" {
		t.Errorf("unexpected url %q", cfg.OllamaAPIURL)
	}
	if cfg.OllamaTimeout != 15*time.Second {
		t.Errorf("expected 15s timeout, got %s", cfg.OllamaTimeout)
	}
	if cfg.OllamaModel != "mistral" {
		t.Errorf("unexpected model %q", cfg.OllamaModel)
	}
	if !cfg.A2AEnabled {
		t.Error("expected A2A enabled from env")
	}
}

func TestLoadFrom_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("OLLAMA_MODEL", "mistral")

	cfg, err := LoadFrom(flag.NewFlagSet("test", flag.ContinueOnError), []string{
		"--ollama-model", "llama3:8b",
		"--ollama-timeout", "3s",
	})
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.OllamaModel != "llama3:8b" {
		t.Errorf("expected flag to win, got %q", cfg.OllamaModel)
	}
	if cfg.OllamaTimeout != 3*time.Second {
		t.Errorf("expected 3s, got %s", cfg.OllamaTimeout)
	}
}

func TestLoadFrom_BadTimeoutFallsBack(t *testing.T) {
	t.Setenv("OLLAMA_TIMEOUT", "whenever")

	cfg, err := LoadFrom(flag.NewFlagSet("test", flag.ContinueOnError), nil)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.OllamaTimeout != defaultTimeout {
		t.Errorf("expected default timeout, got %s", cfg.OllamaTimeout)
	}
}

func TestLoadFrom_NegativeEnvTimeoutFallsBack(t *testing.T) {
	for _, v := range []string{"-5", "-5s"} {
		t.Setenv("OLLAMA_TIMEOUT", v)

		cfg, err := LoadFrom(flag.NewFlagSet("test", flag.ContinueOnError), nil)
		if err != nil {
			t.Fatalf("OLLAMA_TIMEOUT=%s: LoadFrom: %v", v, err)
		}
		if cfg.OllamaTimeout != defaultTimeout {
			t.Errorf("OLLAMA_TIMEOUT=%s: expected default timeout, got %s", v, cfg.OllamaTimeout)
		}
	}
}

func TestLoadFrom_TimeoutFlagAcceptsEnvForms(t *testing.T) {
	tests := []struct {
		arg  string
		want time.Duration
	}{
		{"30", 30 * time.Second},
		{"2.5", 2500 * time.Millisecond},
		{"45s", 45 * time.Second},
	}
	for _, tt := range tests {
		cfg, err := LoadFrom(flag.NewFlagSet("test", flag.ContinueOnError), []string{"--ollama-timeout", tt.arg})
		if err != nil {
			t.Fatalf("--ollama-timeout %s: %v", tt.arg, err)
		}
		if cfg.OllamaTimeout != tt.want {
			t.Errorf("--ollama-timeout %s = %s, want %s", tt.arg, cfg.OllamaTimeout, tt.want)
		}
	}

	for _, bad := range []string{"-5s", "-1", "soon"} {
		fs := flag.NewFlagSet("test", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		if _, err := LoadFrom(fs, []string{"--ollama-timeout", bad}); err == nil {
			t.Errorf("--ollama-timeout %s: expected error", bad)
		}
	}
}

func TestLoadClientFrom_OmitsGatewayFlags(t *testing.T) {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	cfg, err := LoadClientFrom(fs, []string{"--ollama-model", "qwen2"})
	if err != nil {
		t.Fatalf("LoadClientFrom: %v", err)
	}
	if cfg.OllamaModel != "qwen2" {
		t.Errorf("expected model qwen2, got %q", cfg.OllamaModel)
	}
	for _, name := range []string{"listen-addr", "a2a", "a2a-port", "agent-name", "agent-desc"} {
		if fs.Lookup(name) != nil {
			t.Errorf("client flag set should not define -%s", name)
		}
	}

	fs = flag.NewFlagSet("generate", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	if _, err := LoadClientFrom(fs, []string{"--listen-addr", ":9090"}); err == nil {
		t.Error("expected gateway flag to be rejected")
	}
}

func TestLoadFrom_RejectsNonPositiveTimeout(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	if _, err := LoadFrom(fs, []string{"--ollama-timeout", "0s"}); err == nil {
		t.Fatal("expected error for zero timeout")
	}
}

func TestNewLogger_Format(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{LogLevel: "warn", LogFormat: "json"}, &buf)
	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info entry should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, `"msg":"shown"`) {
		t.Errorf("expected JSON warn entry, got: %s", out)
	}
}
