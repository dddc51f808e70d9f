package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/seu-repo/voxbank/pkg/config"
)

var (
	apiURL    = flag.String("api", "", "Banking API base URL (overrides config)")
	socketURL = flag.String("socket", "", "Realtime voice socket URL (overrides config)")
	language  = flag.String("language", "", "Dialogue language tag (overrides config)")
	noAudio   = flag.Bool("no-audio", false, "Disable microphone and speaker (text-only commands)")
	verbose   = flag.Bool("verbose", false, "Enable verbose logging")
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger, err := newLogger(cfg, *verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	if *apiURL != "" {
		cfg.API.BaseURL = *apiURL
	}
	if *socketURL != "" {
		cfg.Realtime.SocketURL = *socketURL
	}
	if *language != "" {
		cfg.Dialogue.Language = *language
	}

	// Build the client
	app, err := NewApp(cfg, *noAudio, logger)
	if err != nil {
		logger.Fatal("Failed to build client", zap.Error(err))
	}

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		app.Close()
		os.Exit(0)
	}()

	fmt.Println("VoxBank voice banking client")
	fmt.Printf("  API:    %s\n", cfg.API.BaseURL)
	fmt.Printf("  Socket: %s\n", cfg.Realtime.SocketURL)
	fmt.Println("\nType 'help' for commands.")
	fmt.Println("")

	app.RunInteractive()
	app.Close()
}

// newLogger builds the logger from the logging config. The -verbose flag
// overrides it with a debug-level development logger.
func newLogger(cfg *config.Config, verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}

	level, err := zapcore.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	zapCfg := zap.NewProductionConfig()
	if cfg.Logging.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}
