package liberty

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"wasdeploy/pkg/logging"

	"github.com/fsnotify/fsnotify"
)

// State files a running server writes into its logs/state directory.
const (
	RESTAddressFile  = "com.ibm.ws.jmx.rest.address"
	LocalAddressFile = "com.ibm.ws.jmx.local.address"
)

// StateWatcher follows the connector address a server publishes in its
// state directory. The address is cached as soon as the file is written so
// callers polling for it do not touch the disk.
type StateWatcher struct {
	dir     string
	watcher *fsnotify.Watcher

	mu      sync.RWMutex
	address string
	changed chan struct{}

	done chan struct{}
	wg   sync.WaitGroup
}

// WatchState starts watching dir, creating it when needed.
func WatchState(dir string) (*StateWatcher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}

	sw := &StateWatcher{
		dir:     dir,
		watcher: w,
		changed: make(chan struct{}),
		done:    make(chan struct{}),
	}
	sw.reload()

	sw.wg.Add(1)
	go sw.loop()
	return sw, nil
}

// RemoveStale deletes address files left behind by a previous server run
// so they are not mistaken for the address of the server about to start.
func RemoveStale(dir string) {
	for _, name := range []string{RESTAddressFile, LocalAddressFile} {
		path := filepath.Join(dir, name)
		if err := os.Remove(path); err == nil {
			logging.Debug(subsystem, "Removed stale %s", path)
		}
	}
}

func (sw *StateWatcher) loop() {
	defer sw.wg.Done()
	for {
		select {
		case <-sw.done:
			return
		case ev, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != RESTAddressFile {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				sw.reload()
			}
		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			logging.Warn(subsystem, "State directory watch error: %v", err)
		}
	}
}

func (sw *StateWatcher) reload() {
	data, err := os.ReadFile(filepath.Join(sw.dir, RESTAddressFile))
	address := ""
	if err == nil {
		address = strings.TrimSpace(string(data))
	} else if !errors.Is(err, os.ErrNotExist) {
		logging.Debug(subsystem, "Cannot read %s: %v", RESTAddressFile, err)
	}

	sw.mu.Lock()
	defer sw.mu.Unlock()
	if address == sw.address {
		return
	}
	sw.address = address
	if address != "" {
		logging.Debug(subsystem, "Server published connector address %s", address)
	}
	close(sw.changed)
	sw.changed = make(chan struct{})
}

// Address returns the published REST connector address, empty until the
// server has written it.
func (sw *StateWatcher) Address() string {
	sw.mu.RLock()
	defer sw.mu.RUnlock()
	return sw.address
}

// WaitForAddress blocks until an address is published or ctx ends.
func (sw *StateWatcher) WaitForAddress(ctx context.Context) (string, error) {
	for {
		sw.mu.RLock()
		address, changed := sw.address, sw.changed
		sw.mu.RUnlock()
		if address != "" {
			return address, nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

// Close stops watching.
func (sw *StateWatcher) Close() error {
	select {
	case <-sw.done:
		return nil
	default:
	}
	close(sw.done)
	err := sw.watcher.Close()
	sw.wg.Wait()
	return err
}
