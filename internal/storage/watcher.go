package storage

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeCallback is invoked after external modification of a collection
// file settles. vaultID is empty when the global vault index changed.
type ChangeCallback func(vaultID, collection string)

// Watch starts an fsnotify watcher on an FS provider's data directory and
// reports externally modified collection files until ctx is cancelled.
// Events are debounced per file so a sync tool rewriting a document does
// not trigger a reload storm. The engine is expected to ignore changes
// whose content matches what it last wrote itself.
//
// Vault directories created at runtime are added to the watch list.
func Watch(ctx context.Context, provider *FS, logger *slog.Logger, cb ChangeCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	root := provider.Root()
	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	const settle = 200 * time.Millisecond
	pending := make(map[string]struct{})
	var settleTimer *time.Timer
	var settleCh <-chan time.Time

	schedule := func(path string) {
		pending[path] = struct{}{}
		if settleTimer == nil {
			settleTimer = time.NewTimer(settle)
			settleCh = settleTimer.C
		} else {
			settleTimer.Reset(settle)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if settleTimer != nil {
				settleTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-settleCh:
			for path := range pending {
				delete(pending, path)
				vaultID, collection, ok := splitCollectionPath(root, path)
				if !ok {
					continue
				}
				logger.Debug("watcher: external change",
					slog.String("vault", vaultID),
					slog.String("collection", collection))
				if cb != nil {
					cb(vaultID, collection)
				}
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			// New vault directories need their own watch.
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					continue
				}
			}

			if !strings.HasSuffix(ev.Name, ".json") {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				schedule(ev.Name)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// splitCollectionPath maps an absolute file path back to (vaultID,
// collection). The global index maps to ("", "vaults").
func splitCollectionPath(root, path string) (string, string, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", "", false
	}
	rel = filepath.ToSlash(rel)
	if rel == indexFile {
		return "", "vaults", true
	}
	parts := strings.Split(rel, "/")
	if len(parts) != 2 || !strings.HasSuffix(parts[1], ".json") {
		return "", "", false
	}
	return parts[0], strings.TrimSuffix(parts[1], ".json"), true
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
