package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces the burst of events an editor or unzip produces
// for a single logical change.
const watchDebounce = 500 * time.Millisecond

// Watch converts .json files under Config.InputDir as they are created or
// written, until ctx is cancelled. New subdirectories are picked up as
// they appear. Cancellation is the normal way to stop watching and
// returns nil.
func (c *Converter) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watchRecursive(watcher, c.Config.InputDir); err != nil {
		return fmt.Errorf("watch %s: %w", c.Config.InputDir, err)
	}

	logf := c.logf()
	logf("watch: watching %s", c.Config.InputDir)

	timers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range timers {
			t.Stop()
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
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			// A created directory needs its own watch before files land
			// in it.
			if event.Has(fsnotify.Create) && isDir(event.Name) {
				if err := watchRecursive(watcher, event.Name); err != nil {
					logf("watch: add %s: %v", event.Name, err)
				}
				continue
			}
			if !strings.EqualFold(filepath.Ext(event.Name), ".json") {
				continue
			}

			path := event.Name
			if t, exists := timers[path]; exists {
				t.Stop()
			}
			timers[path] = time.AfterFunc(watchDebounce, func() {
				res := c.ConvertFile(ctx, path)
				c.emit(res)
				switch res.Outcome {
				case OutcomeFailed:
					logf("watch: file=%s outcome=%s error=%q", res.Input, res.Outcome, res.Err)
				default:
					logf("watch: file=%s outcome=%s tables=%d", res.Input, res.Outcome, len(res.Tables))
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logf("watch: error: %v", err)
		}
	}
}

func watchRecursive(w *fsnotify.Watcher, root string) error {
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

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
