package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"

	"github.com/grabbit-dl/grabbit/internal/app"
	"github.com/grabbit-dl/grabbit/internal/platform"
	"github.com/grabbit-dl/grabbit/internal/web"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#2DBD64")).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#E64553")).Bold(true)
	dimStyle  = lipgloss.NewStyle().Faint(true)
)

func main() {
	var (
		opts         platform.Options
		jsonOut      bool
		quiet        bool
		verbose      bool
		serve        bool
		addr         string
		historyN     int
		clearHistory bool
	)

	flag.StringVar(&opts.OutputDir, "o", "", "destination directory for downloaded media (default from GRABBIT_OUTPUT_DIR or ./downloads)")
	flag.StringVar(&opts.Quality, "quality", "", "preferred video quality (e.g. 720p, lowest; default highest progressive)")
	flag.StringVar(&opts.Format, "format", "", "audio container for -audio output (mp3, m4a, opus; default mp3)")
	flag.BoolVar(&opts.AudioOnly, "audio", false, "download best available audio only, reformatted via ffmpeg")
	flag.DurationVar(&opts.Timeout, "timeout", 30*time.Second, "per-request timeout for metadata calls")
	flag.BoolVar(&jsonOut, "json", false, "emit the invocation as JSON")
	flag.BoolVar(&quiet, "quiet", false, "suppress decorative output")
	flag.BoolVar(&verbose, "verbose", false, "enable structured debug logging")
	flag.BoolVar(&serve, "serve", false, "serve the single-page web UI instead of running one-shot")
	flag.StringVar(&addr, "addr", "127.0.0.1:8090", "listen address for -serve")
	flag.IntVar(&historyN, "history", -1, "print the N most recent history entries and exit (0 = all)")
	flag.BoolVar(&clearHistory, "clear-history", false, "clear the invocation history and exit")
	flag.Parse()

	logger := newLogger(verbose, serve)
	defer logger.Sync()

	cfg, err := app.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	a, err := app.New(cfg, opts, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	switch {
	case clearHistory:
		if err := a.History().Clear(); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("history cleared")
		return
	case historyN >= 0:
		printHistory(a, historyN, jsonOut)
		return
	case serve:
		runServer(a, logger, addr)
		return
	}

	urls := flag.Args()
	if len(urls) == 0 {
		fmt.Fprintf(os.Stderr, "usage: %s [options] <url> [url...]\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	interactive := !jsonOut && !quiet && isatty.IsTerminal(os.Stdout.Fd())

	exitCode := 0
	for _, url := range urls {
		var inv app.Invocation
		if interactive {
			inv = app.WithSpinner("Processing "+url, func() app.Invocation {
				return a.Process(ctx, url)
			})
		} else {
			inv = a.Process(ctx, url)
		}
		if code := printInvocation(inv, jsonOut); code > exitCode {
			exitCode = code
		}
	}
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

func newLogger(verbose, serve bool) *zap.Logger {
	if verbose || serve {
		config := zap.NewDevelopmentConfig()
		if !verbose {
			config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
		}
		logger, err := config.Build()
		if err == nil {
			return logger
		}
	}
	return zap.NewNop()
}

func runServer(a *app.App, logger *zap.Logger, addr string) {
	server := web.NewServer(a, logger)
	fmt.Printf("grabbit web UI on http://%s\n", addr)
	if err := server.ListenAndServe(addr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printInvocation(inv app.Invocation, jsonOut bool) int {
	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetEscapeHTML(false)
		_ = enc.Encode(inv)
	} else if inv.Result.Success {
		fmt.Println(okStyle.Render("✓"), inv.Result.Message)
		for key, value := range inv.Result.Payload {
			fmt.Println(dimStyle.Render(fmt.Sprintf("  %s: %v", key, value)))
		}
	} else {
		fmt.Println(failStyle.Render("✗"), inv.Result.Message)
	}

	if inv.Result.Success {
		return 0
	}
	return inv.Result.Category.ExitCode()
}

func printHistory(a *app.App, limit int, jsonOut bool) {
	records := a.History().List(limit)
	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetEscapeHTML(false)
		_ = enc.Encode(records)
		return
	}
	if len(records) == 0 {
		fmt.Println("history is empty")
		return
	}
	for _, rec := range records {
		mark := okStyle.Render("✓")
		if !rec.Success {
			mark = failStyle.Render("✗")
		}
		fmt.Printf("%s %s %-11s %s\n", dimStyle.Render(rec.Timestamp), mark, rec.Platform, rec.URL)
	}
}
