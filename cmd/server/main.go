// Tris Server - Main Entry Point
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tris-server/internal/game"
	"tris-server/internal/server"
	"tris-server/pkg/logger"
)

var (
	version    = "1.0.0"
	buildTime  = "dev"
	port       = flag.String("port", "7777", "Server port")
	host       = flag.String("host", "localhost", "Server host")
	maxClients = flag.Int("max-clients", 128, "Maximum simultaneous connections")
	maxMatches = flag.Int("max-matches", 128, "Maximum simultaneous matches")
	logLevel   = flag.String("log-level", "INFO", "Log level (DEBUG, INFO, WARN, ERROR)")
	logFile    = flag.String("log-file", "", "Log file path (optional)")
	help       = flag.Bool("help", false, "Show help information")
	ver        = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *help {
		showHelp()
		return
	}
	if *ver {
		showVersion()
		return
	}

	if err := initLogging(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}

	logger.Server.Info("Starting Tris Server v%s", version)

	registry := game.NewRegistry(*maxClients)
	store := game.NewStore(*maxMatches, registry)

	address := fmt.Sprintf("%s:%s", *host, *port)
	gameServer := server.NewServer(address, registry, store)

	setupGracefulShutdown(gameServer)

	if err := gameServer.Start(); err != nil {
		logger.Server.Fatal("Server failed to start: %v", err)
	}
}

// initLogging sets up the logging system
func initLogging() error {
	var level logger.LogLevel
	switch *logLevel {
	case "DEBUG":
		level = logger.DEBUG
	case "INFO":
		level = logger.INFO
	case "WARN":
		level = logger.WARN
	case "ERROR":
		level = logger.ERROR
	default:
		level = logger.INFO
	}
	logger.SetGlobalLogLevel(level)

	if *logFile != "" {
		if err := logger.Server.SetFile(*logFile); err != nil {
			return fmt.Errorf("failed to set log file: %w", err)
		}
		logger.Server.Info("Logging to file: %s", *logFile)
	}
	return nil
}

// setupGracefulShutdown handles graceful shutdown on interrupt signals
func setupGracefulShutdown(gameServer *server.Server) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		logger.Server.Info("Received shutdown signal, stopping server...")
		gameServer.Stop()
		os.Exit(0)
	}()
}

// showHelp displays help information
func showHelp() {
	fmt.Printf(`Tris Server v%s

USAGE:
    %s [OPTIONS]

OPTIONS:
    -port string         Server port (default "7777")
    -host string         Server host (default "localhost")
    -max-clients int     Maximum simultaneous connections (default 128)
    -max-matches int     Maximum simultaneous matches (default 128)
    -log-level string    Set log level (DEBUG, INFO, WARN, ERROR) (default "INFO")
    -log-file string     Set log file path (optional)
    -help                Show this help message
    -version             Show version information

EXAMPLES:
    # Start server with default settings
    %s

    # Start on all interfaces
    %s -host 0.0.0.0 -port 7777

    # Production setup
    %s -host 0.0.0.0 -log-level WARN -log-file /var/log/tris-server.log

PROTOCOL:
    Line-oriented text over TCP. After LOGIN <name>, clients can CREATE
    or JOIN matches from the shared lobby, play with MOVE <r> <c>, and
    start a follow-up game with REMATCH after winning or drawing.
`, version, os.Args[0], os.Args[0], os.Args[0], os.Args[0])
}

// showVersion displays version information
func showVersion() {
	fmt.Printf(`Tris Server
Version: %s
Build Time: %s
`, version, buildTime)
}
