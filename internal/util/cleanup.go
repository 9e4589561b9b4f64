package util

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
)

type cleanupLogger interface {
	Infof(string, ...any)
	Warnf(string, ...any)
}

// InterruptContext returns a context cancelled on SIGINT/SIGTERM. On a
// signal, unfinished export folders in outputDir are removed as well.
func InterruptContext(parent context.Context, outputDir string, log cleanupLogger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-sig:
			log.Infof("interrupt received, cleaning up %s", outputDir)
			cancel()
			CleanupUnfinishedTempFolders(outputDir, log)
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sig)
		cancel()
	}
}

// CleanupUnfinishedTempFolders removes the *_tmp folders left by
// interrupted exports.
func CleanupUnfinishedTempFolders(outputDir string, log cleanupLogger) {
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return
	}

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() && strings.HasSuffix(name, "_tmp") {
			full := filepath.Join(outputDir, name)

			if err := os.RemoveAll(full); err != nil {
				log.Warnf("cleaning up %s: %v", full, err)
			} else {
				log.Infof("removed %s", full)
			}
		}
	}
}

// RemoveIfEmpty deletes dir when it holds nothing and reports whether it
// did.
func RemoveIfEmpty(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) > 0 {
		return false
	}

	return os.Remove(dir) == nil
}

func CleanupFolder(folder string) {
	_ = os.RemoveAll(folder)
}
