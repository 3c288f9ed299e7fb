package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/notedown/internal/config"
	"git.home.luguber.info/inful/notedown/internal/embed"
	"git.home.luguber.info/inful/notedown/internal/markup"
	"git.home.luguber.info/inful/notedown/internal/observability"
	"git.home.luguber.info/inful/notedown/internal/version"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"notedown.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Encode struct {
		Input       string `arg:"" help:"Markdown file to encode, or - for stdin"`
		Output      string `short:"o" help:"Write markup here instead of stdout"`
		DeferEmbeds bool   `help:"Emit embed placeholders instead of embed figures"`
		DeferImages bool   `help:"Emit image placeholders instead of image figures"`
		Save        bool   `help:"Persist the encoded document in the draft store"`
	} `cmd:"" help:"Convert Markdown to note.com markup"`

	Decode struct {
		Input  string `arg:"" help:"Markup file to decode, or - for stdin"`
		Output string `short:"o" help:"Write Markdown here instead of stdout"`
	} `cmd:"" help:"Convert note.com markup back to Markdown"`

	Classify struct {
		URL string `arg:"" help:"URL to classify"`
	} `cmd:"" help:"Print the embed service a URL maps to"`

	Scan struct {
		Input string `arg:"" help:"Markup file to scan, or - for stdin"`
	} `cmd:"" help:"List unresolved placeholders in encoded markup"`

	Register struct {
		Input  string `arg:"" help:"Encoded markup file, or - for stdin"`
		Key    string `short:"k" required:"" help:"Server document key the embeds belong to"`
		Output string `short:"o" help:"Write rewritten markup here instead of stdout"`
	} `cmd:"" help:"Exchange local embed keys for server-registered ones"`

	Results struct {
		ID string `arg:"" help:"Document ID"`
	} `cmd:"" help:"Show recorded placeholder outcomes for a document"`

	Watch struct {
		Dir string `arg:"" help:"Directory of Markdown files to watch"`
	} `cmd:"" help:"Re-encode Markdown files as they change"`

	Version struct{} `cmd:"" help:"Print version information"`
}

func main() {
	ctx := kong.Parse(&CLI)

	cfg := loadConfig()
	setupLogging(cfg)
	observability.InitGlobalTracer()

	var err error
	switch ctx.Command() {
	case "encode <input>":
		err = runEncode(cfg)
	case "decode <input>":
		err = runDecode()
	case "classify <url>":
		err = runClassify()
	case "scan <input>":
		err = runScan()
	case "register <input>":
		err = runRegister(cfg)
	case "results <id>":
		err = runResults(cfg)
	case "watch <dir>":
		err = runWatch(cfg)
	case "version":
		fmt.Printf("notedown %s (commit %s, built %s)\n",
			version.Version, version.GitCommit, version.BuildTime)
	}

	if err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// loadConfig loads the configured file when it exists and falls back to
// defaults otherwise. Only an explicitly broken file is fatal.
func loadConfig() *config.Config {
	if _, err := os.Stat(CLI.Config); os.IsNotExist(err) {
		return config.Default()
	}
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func setupLogging(cfg *config.Config) {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if CLI.Verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// readInput reads a file argument, with "-" meaning stdin.
func readInput(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func writeOutput(path, content string) error {
	if path == "" {
		_, err := fmt.Print(content)
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

func runDecode() error {
	source, err := readInput(CLI.Decode.Input)
	if err != nil {
		return err
	}
	markdown, err := markup.Decode(source)
	if err != nil {
		return err
	}
	return writeOutput(CLI.Decode.Output, markdown+"\n")
}

func runClassify() error {
	service := embed.Classify(CLI.Classify.URL)
	if service == "" {
		fmt.Println("unsupported")
		return nil
	}
	fmt.Println(service)
	return nil
}

// documentID derives a stable draft ID from an input path.
func documentID(input string) string {
	if input == "-" {
		return "stdin"
	}
	base := filepath.Base(input)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
