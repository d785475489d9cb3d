package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/goalcast/internal/cli"
	"github.com/okian/goalcast/internal/config"
	"github.com/okian/goalcast/pkg/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	logFile := flag.String("log", "", "also write logs to this file")
	help := flag.Bool("help", false, "show help")
	flag.Usage = func() { cli.ShowHelp(os.Stderr) }
	flag.Parse()
	if *help || flag.NArg() == 0 {
		cli.ShowHelp(os.Stdout)
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return 1
	}
	closeLog, err := cli.SetupLogging(cfg, *logFile)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		return 1
	}
	defer closeLog()
	log := logger.Get()

	svc, closeSvc, err := cli.Open(ctx, cfg)
	if err != nil {
		log.Error(ctx, "failed to open pipeline", logger.Error(err))
		return 1
	}
	defer closeSvc()

	if err := cli.NewRunner(svc, os.Stdout).Run(ctx, flag.Args()); err != nil {
		if cli.IsUsage(err) {
			os.Stderr.WriteString(err.Error() + "\n\n")
			cli.ShowHelp(os.Stderr)
			return 2
		}
		log.Error(ctx, "command failed", logger.String("command", flag.Arg(0)), logger.Error(err))
		return 1
	}
	return 0
}
