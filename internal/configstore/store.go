// Package configstore implements the file-backed configuration store behind
// the configuration API. Items live in one YAML file per store; external
// edits are picked up through fsnotify and pushed to subscribers.
package configstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"

	"github.com/cloud-runtimes/cloudruntimes-go/internal/log"
	"github.com/cloud-runtimes/cloudruntimes-go/runtimes/core"
)

// fileFormat is the YAML layout of a store file.
type fileFormat struct {
	Apps map[string][]itemYAML `yaml:"apps"`
}

type itemYAML struct {
	Key     string            `yaml:"key"`
	Value   string            `yaml:"value"`
	Group   string            `yaml:"group,omitempty"`
	Label   string            `yaml:"label,omitempty"`
	Version string            `yaml:"version,omitempty"`
	Tags    map[string]string `yaml:"tags,omitempty"`
}

// Selector filters configuration items.
type Selector struct {
	Keys  []string
	Group string
	Label string
}

func (s Selector) matches(item core.ConfigurationItem) bool {
	if s.Group != "" && item.Group != s.Group {
		return false
	}
	if s.Label != "" && item.Label != s.Label {
		return false
	}
	if len(s.Keys) == 0 {
		return true
	}
	for _, k := range s.Keys {
		if item.Key == k {
			return true
		}
	}
	return false
}

// Subscription receives configuration updates for one app.
type Subscription struct {
	C chan core.ConfigurationUpdate

	appID    string
	selector Selector
	store    *Store
	once     sync.Once
}

// Close detaches the subscription and closes C.
func (s *Subscription) Close() {
	s.once.Do(func() { s.store.removeSub(s) })
}

// Store is one named file-backed configuration store.
type Store struct {
	name string
	path string

	mu   sync.RWMutex
	data map[string][]core.ConfigurationItem
	subs map[*Subscription]struct{}

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// New opens (or creates) a store backed by the YAML file at path. When
// watch is true external file changes are propagated to subscribers.
func New(name, path string, watch bool) (*Store, error) {
	s := &Store{
		name: name,
		path: path,
		data: make(map[string][]core.ConfigurationItem),
		subs: make(map[*Subscription]struct{}),
		done: make(chan struct{}),
	}
	if err := s.load(); err != nil {
		return nil, err
	}

	if watch {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			return nil, fmt.Errorf("configstore %s: starting watcher: %w", name, err)
		}
		// Watch the directory, not the file: editors and atomic writers
		// replace the file, which drops a direct file watch.
		if err := w.Add(filepath.Dir(path)); err != nil {
			_ = w.Close()
			return nil, fmt.Errorf("configstore %s: watching %s: %w", name, filepath.Dir(path), err)
		}
		s.watcher = w
		go s.watchLoop()
	}
	return s, nil
}

// Name returns the store's component name.
func (s *Store) Name() string { return s.name }

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // fresh store
		}
		return fmt.Errorf("configstore %s: reading %s: %w", s.name, s.path, err)
	}
	var ff fileFormat
	if err := yaml.Unmarshal(data, &ff); err != nil {
		return fmt.Errorf("configstore %s: parsing %s: %w", s.name, s.path, err)
	}

	parsed := make(map[string][]core.ConfigurationItem, len(ff.Apps))
	for app, items := range ff.Apps {
		converted := make([]core.ConfigurationItem, 0, len(items))
		for _, it := range items {
			converted = append(converted, core.ConfigurationItem{
				Key: it.Key, Value: it.Value, Group: it.Group,
				Label: it.Label, Version: it.Version, Tags: it.Tags,
			})
		}
		parsed[app] = converted
	}

	s.mu.Lock()
	s.data = parsed
	s.mu.Unlock()
	return nil
}

// Get returns the items of appID matching sel, in stored order.
func (s *Store) Get(appID string, sel Selector) []core.ConfigurationItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []core.ConfigurationItem
	for _, item := range s.data[appID] {
		if sel.matches(item) {
			out = append(out, item)
		}
	}
	return out
}

// Save upserts items for appID (matched by key+group+label) and persists
// the store file atomically. Subscribers are notified of the saved items.
func (s *Store) Save(appID string, items []core.ConfigurationItem) error {
	s.mu.Lock()
	existing := s.data[appID]
	for _, item := range items {
		replaced := false
		for i, cur := range existing {
			if cur.Key == item.Key && cur.Group == item.Group && cur.Label == item.Label {
				existing[i] = item
				replaced = true
				break
			}
		}
		if !replaced {
			existing = append(existing, item)
		}
	}
	s.data[appID] = existing
	err := s.persistLocked()
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.notify(appID, items)
	return nil
}

// Delete removes the items of appID matching sel and persists the file.
func (s *Store) Delete(appID string, sel Selector) error {
	s.mu.Lock()
	kept := s.data[appID][:0]
	for _, item := range s.data[appID] {
		if !sel.matches(item) {
			kept = append(kept, item)
		}
	}
	s.data[appID] = kept
	err := s.persistLocked()
	s.mu.Unlock()
	return err
}

// persistLocked must be called with mu held.
func (s *Store) persistLocked() error {
	ff := fileFormat{Apps: make(map[string][]itemYAML, len(s.data))}
	for app, items := range s.data {
		converted := make([]itemYAML, 0, len(items))
		for _, it := range items {
			converted = append(converted, itemYAML{
				Key: it.Key, Value: it.Value, Group: it.Group,
				Label: it.Label, Version: it.Version, Tags: it.Tags,
			})
		}
		ff.Apps[app] = converted
	}
	data, err := yaml.Marshal(&ff)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return err
	}
	return renameio.WriteFile(s.path, data, 0o600)
}

// Subscribe streams updates for appID items matching sel.
func (s *Store) Subscribe(appID string, sel Selector) *Subscription {
	sub := &Subscription{
		C:        make(chan core.ConfigurationUpdate, 8),
		appID:    appID,
		selector: sel,
		store:    s,
	}
	s.mu.Lock()
	s.subs[sub] = struct{}{}
	s.mu.Unlock()
	return sub
}

func (s *Store) removeSub(sub *Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[sub]; ok {
		delete(s.subs, sub)
		close(sub.C)
	}
}

// UnsubscribeApp closes every subscription of appID.
func (s *Store) UnsubscribeApp(appID string) {
	s.mu.Lock()
	var victims []*Subscription
	for sub := range s.subs {
		if sub.appID == appID {
			victims = append(victims, sub)
		}
	}
	s.mu.Unlock()
	for _, sub := range victims {
		sub.Close()
	}
}

func (s *Store) notify(appID string, items []core.ConfigurationItem) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for sub := range s.subs {
		if sub.appID != appID {
			continue
		}
		var matched []core.ConfigurationItem
		for _, item := range items {
			if sub.selector.matches(item) {
				matched = append(matched, item)
			}
		}
		if len(matched) == 0 {
			continue
		}
		update := core.ConfigurationUpdate{StoreName: s.name, AppID: appID, Items: matched}
		select {
		case sub.C <- update:
		default:
			logger := log.Base()
			logger.Warn().
				Str("store", s.name).
				Str("app_id", appID).
				Msg("configuration subscriber buffer full, update dropped")
		}
	}
}

func (s *Store) watchLoop() {
	logger := log.WithComponent("configstore")
	for {
		select {
		case <-s.done:
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(s.path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			s.reloadAndDiff()
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn().Err(err).Str("store", s.name).Msg("config watcher error")
		}
	}
}

// reloadAndDiff re-reads the store file after an external change and
// notifies subscribers of items whose value differs from the snapshot.
func (s *Store) reloadAndDiff() {
	s.mu.RLock()
	before := s.data
	s.mu.RUnlock()

	if err := s.load(); err != nil {
		logger := log.WithComponent("configstore")
		logger.Warn().
			Err(err).
			Str("store", s.name).
			Msg("reload after file change failed, keeping previous snapshot")
		s.mu.Lock()
		s.data = before
		s.mu.Unlock()
		return
	}

	s.mu.RLock()
	after := s.data
	s.mu.RUnlock()

	for app, items := range after {
		old := indexItems(before[app])
		var changed []core.ConfigurationItem
		for _, item := range items {
			prev, existed := old[itemKey{item.Key, item.Group, item.Label}]
			if !existed || prev.Value != item.Value || prev.Version != item.Version {
				changed = append(changed, item)
			}
		}
		if len(changed) > 0 {
			s.notify(app, changed)
		}
	}
}

type itemKey struct {
	key, group, label string
}

func indexItems(items []core.ConfigurationItem) map[itemKey]core.ConfigurationItem {
	idx := make(map[itemKey]core.ConfigurationItem, len(items))
	for _, it := range items {
		idx[itemKey{it.Key, it.Group, it.Label}] = it
	}
	return idx
}

// Close stops the watcher and closes all subscriptions.
func (s *Store) Close() error {
	s.mu.Lock()
	select {
	case <-s.done:
		s.mu.Unlock()
		return nil
	default:
	}
	close(s.done)
	var subs []*Subscription
	for sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}
