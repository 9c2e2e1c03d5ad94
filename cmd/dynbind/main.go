package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/wippyai/dynbind/il"
	"github.com/wippyai/dynbind/rewrite"
	"go.uber.org/zap"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintln(os.Stderr, "Usage: dynbind <source> <destination>")
		os.Exit(2)
	}

	log, err := newLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	rewrite.SetLogger(log)
	il.SetLogger(log)

	if err := run(log, os.Args[1], os.Args[2]); err != nil {
		log.Error("rewrite failed", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
}

func newLogger() (*zap.Logger, error) {
	if os.Getenv("DYNBIND_DEBUG") != "" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(log *zap.Logger, src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read source: %w", err)
	}

	out, report, err := rewrite.Transform(data, rewrite.DefaultConfig())
	if err != nil {
		return fmt.Errorf("transform %s: %w", src, err)
	}

	if err := writeFile(dst, out); err != nil {
		return fmt.Errorf("write destination: %w", err)
	}

	log.Info("module written",
		zap.String("source", src),
		zap.String("destination", dst),
		zap.String("target", report.Target),
		zap.Bool("found", report.Found),
		zap.Int("rewritten", len(report.Methods)))
	return nil
}

// writeFile replaces path atomically: the data goes to a temporary file in
// the same directory which is then renamed over the destination.
func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return err
	}
	return nil
}
