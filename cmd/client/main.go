// Tris Client - Main Entry Point
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tris-server/internal/client"
	"tris-server/pkg/logger"
)

var (
	version    = "1.0.0"
	serverAddr = flag.String("server", "localhost:7777", "Server address (host:port)")
	logLevel   = flag.String("log-level", "WARN", "Log level (DEBUG, INFO, WARN, ERROR)")
)

func main() {
	flag.Parse()

	switch *logLevel {
	case "DEBUG":
		logger.SetGlobalLogLevel(logger.DEBUG)
	case "INFO":
		logger.SetGlobalLogLevel(logger.INFO)
	case "ERROR":
		logger.SetGlobalLogLevel(logger.ERROR)
	default:
		logger.SetGlobalLogLevel(logger.WARN)
	}

	logger.Client.Info("Starting Tris Client v%s", version)

	gameClient := client.NewClient(*serverAddr)
	setupGracefulShutdown(gameClient)

	if err := gameClient.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// setupGracefulShutdown closes the connection on interrupt signals
func setupGracefulShutdown(gameClient *client.Client) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		gameClient.Stop()
		os.Exit(0)
	}()
}
