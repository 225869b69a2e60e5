package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newLogger(verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Encoding = "console"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return config.Build()
}

func projectFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "config file, defaults to importmap.yaml in the project root",
		},
		&cli.StringFlag{
			Name:  "out",
			Usage: "write every source under this directory",
		},
		&cli.IntFlag{
			Name:  "jobs",
			Usage: "concurrent transforms, 0 for one per CPU",
		},
		&cli.StringFlag{
			Name:  "mode",
			Value: "production",
			Usage: "build mode reported to the plugin",
		},
	}
}

func RootCommand() *cli.Command {
	var logger *zap.Logger
	cmd := &cli.Command{
		Name:  "importmap",
		Usage: "rewrite UI library deep imports for production bundles",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "log every rewritten file",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			var err error
			logger, err = newLogger(cmd.Bool("verbose"))
			return ctx, err
		},
		After: func(ctx context.Context, cmd *cli.Command) error {
			if logger != nil {
				_ = logger.Sync()
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "rewrite",
				Usage:     "transform one module and print it",
				ArgsUsage: "[FILE]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "id",
						Usage: "module identifier, defaults to the absolute file path",
					},
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "config file",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return rewriteOne(cmd, logger, cmd.Root().Reader, cmd.Root().Writer)
				},
			},
			{
				Name:      "build",
				Usage:     "transform every source in a project",
				ArgsUsage: "[DIR]",
				Flags: append([]cli.Flag{
					&cli.BoolFlag{
						Name:  "write",
						Usage: "rewrite sources in place",
					},
				}, projectFlags()...),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					report, err := buildProject(ctx, cmd, logger)
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.Root().Writer, report.Hash)
					return nil
				},
			},
			{
				Name:      "watch",
				Usage:     "build, then rebuild sources as they change",
				ArgsUsage: "[DIR]",
				Flags: append([]cli.Flag{
					&cli.BoolFlag{
						Name:  "write",
						Usage: "rewrite sources in place",
					},
				}, projectFlags()...),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return watchProject(ctx, cmd, logger)
				},
			},
			{
				Name:      "list",
				Usage:     "list project sources the rewriter would see",
				ArgsUsage: "[DIR]",
				Flags:     projectFlags()[:1],
				Action: func(ctx context.Context, cmd *cli.Command) error {
					p, err := loadProject(cmd)
					if err != nil {
						return err
					}
					logger.Info("list project sources.", zap.String("root", p.root))
					for _, f := range p.files {
						//output file relative to project root
						fmt.Fprintln(cmd.Root().Writer, f.Path)
					}
					return nil
				},
			},
		},
	}
	return cmd
}

func main() {
	ctx, stop := signalContext()
	defer stop()

	cmd := RootCommand()
	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "importmap:", err)
		os.Exit(1)
	}
}
