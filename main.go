package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"flight-sniper/config"
	"flight-sniper/utils"
)

const usage = `usage: flight-sniper [command]

commands:
  scan                      scan every watched route once (default)
  watch                     re-scan the watch list every WATCH_INTERVAL_MINUTES
  serve                     run the history dashboard API on HTTP_ADDR
  purge [ORIGIN DESTINATION] delete one route's history, or all of it
`

func main() {
	flag.Usage = func() { fmt.Fprint(flag.CommandLine.Output(), usage) }
	flag.Parse()

	logger := utils.NewLogger()
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := flag.Arg(0)
	if cmd == "" {
		cmd = "scan"
	}

	var err error
	switch cmd {
	case "scan":
		err = runScan(ctx, cfg, logger)
	case "watch":
		err = runWatch(ctx, cfg, logger)
	case "serve":
		err = runServe(ctx, cfg, logger)
	case "purge":
		err = runPurge(ctx, cfg, logger, flag.Args()[1:])
	default:
		flag.Usage()
		os.Exit(2)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("%s: %v", cmd, err)
		stop()
		os.Exit(1)
	}
}
