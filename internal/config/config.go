package config

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultOllamaURL = "http://localhost:11434/api/generate"
	defaultTimeout   = 120 * time.Second
)

type Config struct {
	OllamaAPIURL   string
	OllamaModel    string
	OllamaAPIKey   string
	OllamaProxyURL string
	OllamaTimeout  time.Duration
	ListenAddr     string
	LogLevel       string
	LogFormat      string
	// A2A
	A2AEnabled bool
	A2APort    int
	AgentName  string
	AgentDesc  string
}

// Load reads .env (when present), the environment and os.Args.
func Load() *Config {
	cfg, err := LoadFrom(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	return cfg
}

// LoadFrom registers the gateway configuration flags on fs and parses args.
// Environment variables supply the flag defaults.
func LoadFrom(fs *flag.FlagSet, args []string) (*Config, error) {
	return load(fs, args, true)
}

// LoadClientFrom is LoadFrom without the gateway and A2A flags, for tools
// that only talk to Ollama.
func LoadClientFrom(fs *flag.FlagSet, args []string) (*Config, error) {
	return load(fs, args, false)
}

func load(fs *flag.FlagSet, args []string, gateway bool) (*Config, error) {
	// A missing .env is the normal case outside development.
	_ = godotenv.Load()

	cfg := &Config{}

	fs.StringVar(&cfg.OllamaAPIURL, "ollama-api-url", getEnv("OLLAMA_API_URL", defaultOllamaURL), "Ollama generate endpoint URL (or base host)")
	fs.StringVar(&cfg.OllamaModel, "ollama-model", getEnv("OLLAMA_MODEL", "llama3"), "Default Ollama model")
	fs.StringVar(&cfg.OllamaAPIKey, "ollama-api-key", getEnv("OLLAMA_API_KEY", ""), "Bearer token for Ollama hosts behind an auth proxy")
	fs.StringVar(&cfg.OllamaProxyURL, "ollama-proxy-url", getEnv("OLLAMA_PROXY_URL", ""), "HTTP/HTTPS proxy URL for Ollama requests (e.g. http://proxy:8080)")
	fs.StringVar(&cfg.LogLevel, "log-level", getEnv("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
	fs.StringVar(&cfg.LogFormat, "log-format", getEnv("LOG_FORMAT", "text"), "Log format: text or json")

	// An unusable OLLAMA_TIMEOUT falls back to the default; the flag is strict.
	cfg.OllamaTimeout = defaultTimeout
	if d, err := ParseTimeout(getEnv("OLLAMA_TIMEOUT", "")); err == nil && d > 0 {
		cfg.OllamaTimeout = d
	}
	fs.Func("ollama-timeout", "Ollama round-trip timeout, in seconds or as a duration (default from OLLAMA_TIMEOUT, else 120s)", func(s string) error {
		d, err := ParseTimeout(s)
		if err != nil {
			return err
		}
		cfg.OllamaTimeout = d
		return nil
	})

	if gateway {
		fs.StringVar(&cfg.ListenAddr, "listen-addr", getEnv("LISTEN_ADDR", ":8080"), "Gateway listen address")
		fs.BoolVar(&cfg.A2AEnabled, "a2a", getEnvBool("A2A_ENABLED", false), "Enable A2A server alongside the gateway")
		fs.IntVar(&cfg.A2APort, "a2a-port", getEnvInt("A2A_PORT", 8000), "A2A server listen port")
		fs.StringVar(&cfg.AgentName, "agent-name", getEnv("AGENT_NAME", "ollama-agent"), "A2A AgentCard name")
		fs.StringVar(&cfg.AgentDesc, "agent-desc", getEnv("AGENT_DESC", "Ollama-backed agent exposed via A2A protocol"), "A2A AgentCard description")
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if cfg.OllamaTimeout <= 0 {
		return nil, fmt.Errorf("ollama-timeout must be positive, got %s", cfg.OllamaTimeout)
	}
	return cfg, nil
}

// ParseTimeout accepts a number of seconds ("30", "2.5") or a Go duration ("30s").
// An empty string yields zero.
func ParseTimeout(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		if secs < 0 {
			return 0, fmt.Errorf("negative timeout %q", s)
		}
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("parse timeout %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("negative timeout %q", s)
	}
	return d, nil
}

// NewLogger builds the process logger described by cfg, writing to w.
func NewLogger(cfg *Config, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	switch v {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
