package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"importmap/build"
	"importmap/config"
	"importmap/project"
	"importmap/rewriter"
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

type projectState struct {
	root   string
	cfg    config.Config
	filter project.Filter
	files  []project.SourceFile
}

func loadConfig(cmd *cli.Command, root string) (config.Config, error) {
	if path := cmd.String("config"); path != "" {
		return config.Load(path)
	}
	return config.LoadOptional(filepath.Join(root, config.FileName))
}

func loadProject(cmd *cli.Command) (*projectState, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	dir := cmd.Args().Get(0)
	if dir == "" {
		dir = cwd
	} else if !filepath.IsAbs(dir) {
		dir = filepath.Join(cwd, dir)
	}

	root, err := project.FindRoot(dir)
	if err != nil {
		return nil, err
	}
	cfg, err := loadConfig(cmd, root)
	if err != nil {
		return nil, err
	}
	filter := cfg.Filter()
	if out := cmd.String("out"); out != "" {
		abs, err := filepath.Abs(out)
		if err != nil {
			return nil, err
		}
		filter.SkipPaths = append(filter.SkipPaths, abs)
	}
	files, err := project.ListSources(root, filter)
	if err != nil {
		return nil, err
	}
	return &projectState{root: root, cfg: cfg, filter: filter, files: files}, nil
}

func newBuilder(cmd *cli.Command, p *projectState, logger *zap.Logger) (*build.Builder, error) {
	plugin, err := rewriter.New(p.cfg.Target, rewriter.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	jobs := p.cfg.Jobs
	if n := int(cmd.Int("jobs")); n > 0 {
		jobs = n
	}
	out := cmd.String("out")
	if out != "" {
		if out, err = filepath.Abs(out); err != nil {
			return nil, err
		}
	}
	return &build.Builder{
		Plugin:  plugin,
		Root:    p.root,
		OutDir:  out,
		InPlace: cmd.Bool("write"),
		Jobs:    jobs,
		Mode:    cmd.String("mode"),
		Logger:  logger,
	}, nil
}

func buildProject(ctx context.Context, cmd *cli.Command, logger *zap.Logger) (*build.Report, error) {
	p, err := loadProject(cmd)
	if err != nil {
		return nil, err
	}
	b, err := newBuilder(cmd, p, logger)
	if err != nil {
		return nil, err
	}
	return b.Run(ctx, p.files)
}

func watchProject(ctx context.Context, cmd *cli.Command, logger *zap.Logger) error {
	p, err := loadProject(cmd)
	if err != nil {
		return err
	}
	b, err := newBuilder(cmd, p, logger)
	if err != nil {
		return err
	}
	w := &build.Watcher{Builder: b, Filter: p.filter}
	return w.Watch(ctx)
}

// rewriteOne transforms a single module read from the first argument or
// stdin. Unchanged modules are echoed as is.
func rewriteOne(cmd *cli.Command, logger *zap.Logger, stdin io.Reader, stdout io.Writer) error {
	cfg := config.Default()
	if path := cmd.String("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return err
		}
	}
	plugin, err := rewriter.New(cfg.Target, rewriter.WithLogger(logger))
	if err != nil {
		return err
	}

	id := cmd.String("id")
	var src []byte
	if file := cmd.Args().Get(0); file != "" && file != "-" {
		if src, err = os.ReadFile(file); err != nil {
			return err
		}
		if id == "" {
			abs, err := filepath.Abs(file)
			if err != nil {
				return err
			}
			id = filepath.ToSlash(abs)
		}
	} else if src, err = io.ReadAll(stdin); err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}

	code := string(src)
	if res := plugin.Transform(code, id); res != nil {
		code = res.Code
		logger.Debug("transformed module", zap.String("id", id), zap.Strings("rules", res.Rules), zap.Bool("inspected", res.Inspected))
	}
	_, err = io.WriteString(stdout, code)
	return err
}
