package schema

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"deck-backend/internal/models"

	"github.com/fsnotify/fsnotify"
)

// ErrTemplateNotFound is returned by Get for ids the catalog does not know.
var ErrTemplateNotFound = errors.New("template not found")

// reloadDelay coalesces bursts of file events into one directory reload.
const reloadDelay = 300 * time.Millisecond

// Catalog serves the built-in templates plus any schema files found in a
// directory. Directory templates never shadow built-ins with the same id.
type Catalog struct {
	showDemos bool
	dir       string

	mu      sync.RWMutex
	builtIn []models.TemplateSchema
	fromDir []models.TemplateSchema
}

// NewCatalog builds a catalog. dir may be empty; when set, it is read once here and
// again on every change while Watch runs.
func NewCatalog(showDemos bool, dir string) *Catalog {
	c := &Catalog{
		showDemos: showDemos,
		dir:       dir,
		builtIn:   BuiltIn(),
	}
	if dir != "" {
		if err := c.Reload(); err != nil {
			log.Printf("catalog: initial load of %s failed: %v", dir, err)
		}
	}
	return c
}

// List returns the templates a user may pick. Without the demo flag only the
// default template is offered from the built-ins.
func (c *Catalog) List() []models.TemplateSchema {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.TemplateSchema, 0, len(c.builtIn)+len(c.fromDir))
	for _, t := range c.builtIn {
		if c.showDemos || t.ID == DefaultTemplateID {
			out = append(out, t)
		}
	}
	out = append(out, c.fromDir...)
	return out
}

// Get looks a template up by id, whether or not List would show it.
func (c *Catalog) Get(id string) (models.TemplateSchema, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, t := range c.builtIn {
		if t.ID == id {
			return t, nil
		}
	}
	for _, t := range c.fromDir {
		if t.ID == id {
			return t, nil
		}
	}
	return models.TemplateSchema{}, fmt.Errorf("%w: %q", ErrTemplateNotFound, id)
}

// Default returns the template a fresh session starts with.
func (c *Catalog) Default() models.TemplateSchema {
	t, err := c.Get(DefaultTemplateID)
	if err != nil {
		// BuiltIn always carries the default.
		panic(err)
	}
	return t
}

// Reload re-reads every .json, .yaml and .yml file in the catalog directory.
// Files that fail to parse are logged and skipped.
func (c *Catalog) Reload() error {
	if c.dir == "" {
		return nil
	}
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("read templates dir: %w", err)
	}

	builtIDs := make(map[string]bool)
	for _, t := range BuiltIn() {
		builtIDs[t.ID] = true
	}

	var loaded []models.TemplateSchema
	seen := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() || !isSchemaFile(e.Name()) {
			continue
		}
		path := filepath.Join(c.dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("catalog: read %s: %v", path, err)
			continue
		}
		t, err := Decode(e.Name(), data)
		if err != nil {
			log.Printf("catalog: skip %s: %v", path, err)
			continue
		}
		if builtIDs[t.ID] {
			log.Printf("catalog: skip %s: id %q is reserved by a built-in template", path, t.ID)
			continue
		}
		if prev, dup := seen[t.ID]; dup {
			log.Printf("catalog: skip %s: id %q already loaded from %s", path, t.ID, prev)
			continue
		}
		seen[t.ID] = path
		loaded = append(loaded, t)
	}
	sort.Slice(loaded, func(i, j int) bool { return loaded[i].Name < loaded[j].Name })

	c.mu.Lock()
	c.fromDir = loaded
	c.mu.Unlock()

	log.Printf("catalog: loaded %d template(s) from %s", len(loaded), c.dir)
	return nil
}

// Watch reloads the directory whenever a schema file is written, created, renamed
// or removed. It blocks until ctx is cancelled.
func (c *Catalog) Watch(ctx context.Context) error {
	if c.dir == "" {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(c.dir); err != nil {
		return fmt.Errorf("watch %s: %w", c.dir, err)
	}
	log.Printf("catalog: watching %s", c.dir)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
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
			if !isSchemaFile(event.Name) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDelay, func() {
				if err := c.Reload(); err != nil {
					log.Printf("catalog: reload failed: %v", err)
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("catalog: watcher error: %v", err)
		}
	}
}

func isSchemaFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
