package acl

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pippellia-btc/smallset"
)

// Controller is an access control list that manages allowed/blocked identities.
// It supports hot-reloading of the CSV files when they are modified.
type Controller struct {
	mu                sync.RWMutex
	identitiesAllowed *smallset.Ordered[string]
	identitiesBlocked *smallset.Ordered[string]

	log     *slog.Logger
	watcher *fsnotify.Watcher
	done    chan struct{}

	config Config
}

// New creates a new Controller with the given configuration.
// It reloads the CSV files from the [Config.Dir] directory when they change, logging using the given logger.
func New(c Config, log *slog.Logger) (*Controller, error) {
	// Resolve absolute path for reliable comparison with fsnotify events
	absPath, err := filepath.Abs(c.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve acl directory path: %w", err)
	}
	c.Dir = absPath

	acl := &Controller{
		config:            c,
		identitiesAllowed: smallset.New[string](100),
		identitiesBlocked: smallset.New[string](100),
		log:               log,
		done:              make(chan struct{}),
	}

	if _, err = acl.reloadAllowedIdentities(); err != nil {
		return nil, fmt.Errorf("failed to load allowed identities: %w", err)
	}
	if _, err = acl.reloadBlockedIdentities(); err != nil {
		return nil, fmt.Errorf("failed to load blocked identities: %w", err)
	}

	acl.watcher, err = fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	// We watch the directory instead of individual files because most editors
	// use atomic writes (write to temp file, then rename), which would cause us to lose the watcher.
	if err := acl.watcher.Add(c.Dir); err != nil {
		acl.watcher.Close()
		return nil, fmt.Errorf("failed to watch acl directory: %w", err)
	}

	go acl.watch()
	return acl, nil
}

// Close stops the file watcher and releases resources.
func (c *Controller) Close() error {
	close(c.done)
	return c.watcher.Close()
}

// Allow checks if an identity should be allowed to request funds.
// It checks the blocked list first, then the allowed list, and finally applies
// the unknown identity policy.
func (c *Controller) Allow(identity string) bool {
	if c.config.DIDPrefix != "" && !strings.HasPrefix(identity, c.config.DIDPrefix) {
		return false
	}

	c.mu.RLock()
	blocked := c.identitiesBlocked.Contains(identity)
	allowed := c.identitiesAllowed.Contains(identity)
	c.mu.RUnlock()

	if blocked {
		return false
	}
	if allowed {
		return true
	}
	return c.config.UnknownIdentityPolicy == AllowAll
}

// AllowedIdentities returns a copy of the current allowed identities list.
func (c *Controller) AllowedIdentities() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.identitiesAllowed.Items()
}

// BlockedIdentities returns a copy of the current blocked identities list.
func (c *Controller) BlockedIdentities() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.identitiesBlocked.Items()
}

// watch monitors the ACL directory for file changes and reloads the changed file.
func (c *Controller) watch() {
	const delay = 100 * time.Millisecond
	timer := map[string]*time.Timer{}

	for {
		select {
		case <-c.done:
			return

		case event, ok := <-c.watcher.Events:
			if !ok {
				return
			}

			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			file := filepath.Base(event.Name)
			if !slices.Contains(RequiredFiles, file) {
				continue
			}

			// debounce the reload by stopping the timer if it exists.
			if timer[file] != nil {
				timer[file].Stop()
			}

			timer[file] = time.AfterFunc(delay, func() {
				count, err := c.reload(file)
				if err != nil {
					c.log.Error("acl: reload failed, using old list", "file", file, "error", err)
					return
				}

				c.log.Info("acl: successful reload", "file", file, "items", count)
			})

		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			c.log.Error("acl: watcher error", "error", err)
		}
	}
}

// reload reloads the given file.
// It returns the number of identities in the new list.
func (c *Controller) reload(file string) (int, error) {
	switch file {
	case IdentitiesAllowedFile:
		return c.reloadAllowedIdentities()
	case IdentitiesBlockedFile:
		return c.reloadBlockedIdentities()
	default:
		return 0, fmt.Errorf("unknown file: %s", file)
	}
}

// reloadAllowedIdentities reloads the allowed list from the identities_allowed.csv file.
// It returns the number of identities in the new list.
func (c *Controller) reloadAllowedIdentities() (int, error) {
	path := filepath.Join(c.config.Dir, IdentitiesAllowedFile)
	identities, _, err := parseCSV(path)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.identitiesAllowed.Clear()
	c.identitiesAllowed = smallset.NewFrom(identities...)
	return c.identitiesAllowed.Size(), nil
}

// reloadBlockedIdentities reloads the blocked list from the identities_blocked.csv file.
// It returns the number of identities in the new list.
func (c *Controller) reloadBlockedIdentities() (int, error) {
	path := filepath.Join(c.config.Dir, IdentitiesBlockedFile)
	identities, _, err := parseCSV(path)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.identitiesBlocked.Clear()
	c.identitiesBlocked = smallset.NewFrom(identities...)
	return c.identitiesBlocked.Size(), nil
}

// parseCSV parses a two-column CSV file (identity, reason).
// Lines starting with '#' are treated as comments.
func parseCSV(path string) (col1 []string, col2 []string, err error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comment = '#'
	reader.FieldsPerRecord = 2
	reader.TrimLeadingSpace = true

	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}

		line++
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read CSV at line %d: %w", line, err)
		}

		col1 = append(col1, strings.TrimSpace(record[0]))
		col2 = append(col2, strings.TrimSpace(record[1]))
	}
	return col1, col2, nil
}
