// Command generate sends one prompt to Ollama and prints the completion.
//
// The prompt is taken from -prompt, or read from stdin when -prompt is empty.
// The exit status is 1 when no usable result was produced; an empty
// completion prints nothing and exits 0.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/diivious/GHOSTS/internal/config"
	"github.com/diivious/GHOSTS/internal/ollama"
)

func main() {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	prompt := fs.String("prompt", "", "Prompt text (read from stdin when empty)")
	model := fs.String("model", "", "Model to use (defaults to --ollama-model)")

	cfg, err := config.LoadClientFrom(fs, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger := config.NewLogger(cfg, os.Stderr)

	text := *prompt
	if text == "" {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			logger.Error("read prompt from stdin", "error", err)
			os.Exit(2)
		}
		text = strings.TrimSpace(string(raw))
	}
	if text == "" {
		fmt.Fprintln(os.Stderr, "generate: empty prompt")
		os.Exit(2)
	}
	if *model == "" {
		*model = cfg.OllamaModel
	}

	client := ollama.NewClient(ollama.Config{
		Endpoint: cfg.OllamaAPIURL,
		Timeout:  cfg.OllamaTimeout,
		ProxyURL: cfg.OllamaProxyURL,
		APIKey:   cfg.OllamaAPIKey,
	}, logger)

	out, ok := client.Generate(context.Background(), text, *model)
	if !ok {
		os.Exit(1)
	}
	if out != "" {
		fmt.Println(out)
	}
}
