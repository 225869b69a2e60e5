// Package build runs the import rewriter over a project tree.
package build

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/mod/sumdb/dirhash"
	"golang.org/x/sync/errgroup"

	"importmap/project"
	"importmap/rewriter"
)

// A FileError records the source file a build step failed on.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// Builder applies a Plugin to project sources.
//
// With OutDir set every source is written under OutDir, rewritten or not.
// With InPlace set only rewritten sources are written back. With neither the
// run only reports.
type Builder struct {
	Plugin  *rewriter.Plugin
	Root    string
	OutDir  string
	InPlace bool
	// Jobs bounds concurrent transforms; 0 means one per CPU.
	Jobs   int
	Mode   string
	Logger *zap.Logger
}

// FileReport describes what happened to one source.
type FileReport struct {
	Path      string
	Changed   bool
	Inspected bool
	Rules     []string
}

// Report summarises a Run.
type Report struct {
	Files     []FileReport
	Rewritten int
	Inspected int
	// Hash is the dirhash h1: hash of the output set. Equal inputs always
	// give equal hashes.
	Hash string
}

func (b *Builder) logger() *zap.Logger {
	if b.Logger == nil {
		return zap.NewNop()
	}
	return b.Logger
}

func (b *Builder) jobs() int {
	if b.Jobs > 0 {
		return b.Jobs
	}
	return runtime.NumCPU()
}

func (b *Builder) resolvedConfig() rewriter.ResolvedConfig {
	mode := b.Mode
	if mode == "" {
		mode = "production"
	}
	return rewriter.ResolvedConfig{Root: b.Root, Mode: mode, OutDir: b.OutDir, Command: "build"}
}

// Run transforms files concurrently and writes the results.
func (b *Builder) Run(ctx context.Context, files []project.SourceFile) (*Report, error) {
	if b.OutDir != "" && b.InPlace {
		return nil, fmt.Errorf("out dir and in-place are mutually exclusive")
	}
	b.Plugin.ConfigResolved(b.resolvedConfig())

	reports := make([]FileReport, len(files))
	outputs := make([][]byte, len(files))
	var rewritten, inspected atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.jobs())
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, fr, err := b.process(f)
			if err != nil {
				return err
			}
			if fr.Changed {
				rewritten.Add(1)
			}
			if fr.Inspected {
				inspected.Add(1)
			}
			reports[i] = fr
			outputs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	hash, err := hashOutputs(files, outputs)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Files:     reports,
		Rewritten: int(rewritten.Load()),
		Inspected: int(inspected.Load()),
		Hash:      hash,
	}
	b.logger().Info("build finished",
		zap.Int("files", len(files)),
		zap.Int("rewritten", report.Rewritten),
		zap.Int("inspected", report.Inspected),
		zap.String("hash", report.Hash))
	return report, nil
}

// process transforms a single source and writes it according to b's mode.
func (b *Builder) process(f project.SourceFile) ([]byte, FileReport, error) {
	fr := FileReport{Path: f.Path}
	src, err := os.ReadFile(filepath.FromSlash(f.ID))
	if err != nil {
		return nil, fr, &FileError{Path: f.Path, Err: err}
	}

	out := src
	if res := b.Plugin.Transform(string(src), f.ID); res != nil {
		fr.Inspected = res.Inspected
		fr.Rules = res.Rules
		if !res.Inspected {
			out = []byte(res.Code)
		}
	}
	fr.Changed = !bytes.Equal(src, out)

	switch {
	case b.OutDir != "":
		dst := filepath.Join(b.OutDir, filepath.FromSlash(f.Path))
		if err := writeFile(dst, out); err != nil {
			return nil, fr, &FileError{Path: f.Path, Err: err}
		}
	case b.InPlace && fr.Changed:
		if err := writeFile(filepath.FromSlash(f.ID), out); err != nil {
			return nil, fr, &FileError{Path: f.Path, Err: err}
		}
	}

	if fr.Changed {
		b.logger().Debug("rewrote imports", zap.String("path", f.Path), zap.Strings("rules", fr.Rules))
	}
	return out, fr, nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func hashOutputs(files []project.SourceFile, outputs [][]byte) (string, error) {
	byName := make(map[string][]byte, len(files))
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Path
		byName[f.Path] = outputs[i]
	}
	return dirhash.Hash1(names, func(name string) (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(byName[name])), nil
	})
}
