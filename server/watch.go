package server

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/broady/restcat"
)

// EngineFactory builds an engine, with the caller's options, for a freshly
// loaded catalog.
type EngineFactory func(*restcat.Catalog) *restcat.Engine

const reloadDebounce = 100 * time.Millisecond

// Reload loads the catalog at path, checks it and, only if it is intact,
// swaps it in.
func (s *Server) Reload(ctx context.Context, path string, build EngineFactory) error {
	cat, err := restcat.LoadFile(path)
	if err != nil {
		return err
	}
	e := build(cat)
	if err := e.Check(ctx); err != nil {
		return err
	}
	s.SetEngine(e)
	s.logger.Info("catalog reloaded", "path", path, "endpoints", cat.Len())
	return nil
}

// Watch reloads the catalog whenever the file at path changes, until ctx is
// done. The containing directory is watched so editors that replace the
// file by renaming are still seen. A catalog that fails to load or check is
// logged and the current engine stays in place.
func (s *Server) Watch(ctx context.Context, path string, build EngineFactory) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	path = filepath.Clean(path)
	if err := w.Add(filepath.Dir(path)); err != nil {
		return err
	}

	var (
		timer  *time.Timer
		reload <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path {
				continue
			}
			if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			reload = timer.C
		case <-reload:
			reload = nil
			if err := s.Reload(ctx, path, build); err != nil {
				s.logger.Error("catalog reload rejected", "path", path, "error", err)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watch error", "error", err)
		}
	}
}
