package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"courier/internal/config"
	"courier/internal/daemonrun"
)

func main() {
	var (
		configPath = flag.String("config", "", "configuration file path")
		socketPath = flag.String("socket", "", "control socket path")
		logLevel   = flag.String("log-level", "", "override log level (debug, info, warn, error)")
	)
	flag.Parse()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	err = daemonrun.Run(context.Background(), cfg, daemonrun.Options{
		LogLevel:   *logLevel,
		SocketPath: *socketPath,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
