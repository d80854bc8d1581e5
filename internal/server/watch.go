package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounceDelay = 100 * time.Millisecond

// Regenerate converts the watched input into the watched output and
// broadcasts the outcome.
func (s *Server) Regenerate() error {
	if s.cfg.WatchInput == "" || s.cfg.WatchOutput == "" {
		return errors.New("watch input and output must both be set")
	}

	err := s.regenerate()
	ev := Event{Time: time.Now().UTC(), Output: s.cfg.WatchOutput}
	if err != nil {
		ev.Error = err.Error()
	}
	s.notifier.Broadcast(ev)
	return err
}

func (s *Server) regenerate() error {
	catalog, err := s.generator.FromFile(s.cfg.WatchInput)
	if err != nil {
		return err
	}
	return s.workbook.WriteFile(catalog, s.cfg.WatchOutput)
}

// Watch regenerates the output once, then again after every change to the
// input file, until ctx is cancelled. Regeneration failures are logged and
// do not stop the watcher.
func (s *Server) Watch(ctx context.Context) error {
	if err := s.Regenerate(); err != nil {
		s.logger.Error("initial generation failed", "error", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory: editors often replace files instead of writing them.
	target := filepath.Clean(s.cfg.WatchInput)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", target, err)
	}
	s.logger.Info("watching flow document", slog.String("input", target), slog.String("output", s.cfg.WatchOutput))

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounceDelay, func() {
				s.logger.Debug("flow document changed, regenerating", "file", event.Name)
				if err := s.Regenerate(); err != nil {
					s.logger.Error("regeneration failed", "error", err)
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", "error", err)
		}
	}
}
