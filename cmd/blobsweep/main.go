package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cliApp := &cli.App{
		Name:  "blobsweep",
		Usage: "retention sweeps for a shared object store",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run one retention pass and print the report",
				Flags: append(commonFlags(),
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "classify and evaluate without deleting anything",
					},
					&cli.StringFlag{
						Name:  "store",
						Usage: "override storage.type (s3, minio, local, memory)",
					},
				),
				Action: runCommand,
			},
			{
				Name:   "serve",
				Usage:  "serve the cron trigger endpoint over HTTP",
				Flags:  commonFlags(),
				Action: serveCommand,
			},
			{
				Name:   "daemon",
				Usage:  "run retention passes on schedule.cron",
				Flags:  commonFlags(),
				Action: daemonCommand,
			},
			{
				Name:      "classify",
				Usage:     "show how keys would be categorised and evaluated",
				ArgsUsage: "KEY...",
				Flags: []cli.Flag{
					&cli.Int64Flag{
						Name:  "size",
						Value: 1,
						Usage: "object size in bytes to assume",
					},
				},
				Action: classifyCommand,
			},
			{
				Name:   "check",
				Usage:  "load and validate configuration",
				Flags:  commonFlags(),
				Action: checkCommand,
			},
		},
	}

	if err := cliApp.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			EnvVars: []string{"BLOBSWEEP_CONFIG"},
			Usage:   "path to config yaml (optional; env overrides apply either way)",
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "log every decision",
		},
	}
}
