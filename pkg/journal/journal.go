package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/0xmhha/firewatch/pkg/logger"
)

// bucketReloads maps a file path to its Entry.
var bucketReloads = []byte("reloads")

// journal implements the Journal interface using BoltDB.
type journal struct {
	db     *bolt.DB
	logger logger.Logger
	now    func() time.Time
}

// New opens or creates the journal database.
func New(cfg Config, log logger.Logger) (Journal, error) {
	if cfg.DBPath == "" {
		return nil, ErrEmptyDBPath
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if log == nil {
		log = logger.Noop()
	}

	dbPath := expandHome(cfg.DBPath)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		if _, createErr := tx.CreateBucketIfNotExists(bucketReloads); createErr != nil {
			return fmt.Errorf("failed to create reloads bucket: %w", createErr)
		}
		return nil
	}); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("failed to close database after initialization error",
				"error", closeErr)
		}
		return nil, err
	}

	log.Debug("journal opened", "db_path", dbPath)

	return &journal{
		db:     db,
		logger: log,
		now:    cfg.Now,
	}, nil
}

// Record implements Journal.Record.
func (j *journal) Record(path string, size int64, loadErr error) error {
	if path == "" {
		return ErrEmptyPath
	}

	now := j.now()

	return j.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketReloads)

		var entry Entry
		if data := b.Get([]byte(path)); data != nil {
			if err := json.Unmarshal(data, &entry); err != nil {
				j.logger.Warn("discarding unreadable journal entry",
					"path", path,
					"error", err)
				entry = Entry{}
			}
		}

		if entry.FirstSeen.IsZero() {
			entry.FirstSeen = now
		}
		entry.Path = path
		entry.Reloads++
		entry.LastReload = now

		if loadErr != nil {
			entry.Failures++
			entry.LastError = loadErr.Error()
		} else {
			entry.LastSize = size
			entry.LastError = ""
		}

		data, err := json.Marshal(&entry)
		if err != nil {
			return fmt.Errorf("failed to marshal entry: %w", err)
		}
		if err := b.Put([]byte(path), data); err != nil {
			return fmt.Errorf("failed to store entry: %w", err)
		}

		j.logger.Debug("reload recorded",
			"path", path,
			"reloads", entry.Reloads,
			"failed", loadErr != nil)
		return nil
	})
}

// Get implements Journal.Get.
func (j *journal) Get(path string) (*Entry, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}

	var entry *Entry

	err := j.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketReloads).Get([]byte(path))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrEntryNotFound, path)
		}

		var e Entry
		if unmarshalErr := json.Unmarshal(data, &e); unmarshalErr != nil {
			return fmt.Errorf("failed to unmarshal entry: %w", unmarshalErr)
		}

		entry = &e
		return nil
	})
	if err != nil {
		return nil, err
	}

	return entry, nil
}

// List implements Journal.List.
func (j *journal) List() ([]*Entry, error) {
	entries := make([]*Entry, 0, 16)

	err := j.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketReloads).ForEach(func(k, v []byte) error {
			var e Entry
			if unmarshalErr := json.Unmarshal(v, &e); unmarshalErr != nil {
				j.logger.Warn("failed to unmarshal journal entry",
					"path", string(k),
					"error", unmarshalErr)
				return nil // Skip invalid entries.
			}

			entries = append(entries, &e)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}

	sort.SliceStable(entries, func(a, b int) bool {
		if !entries[a].LastReload.Equal(entries[b].LastReload) {
			return entries[a].LastReload.After(entries[b].LastReload)
		}
		return entries[a].Path < entries[b].Path
	})

	return entries, nil
}

// Clear implements Journal.Clear.
func (j *journal) Clear() error {
	err := j.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketReloads); err != nil {
			return fmt.Errorf("failed to delete reloads bucket: %w", err)
		}
		if _, err := tx.CreateBucket(bucketReloads); err != nil {
			return fmt.Errorf("failed to recreate reloads bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	j.logger.Info("journal cleared")
	return nil
}

// Close implements Journal.Close.
func (j *journal) Close() error {
	if err := j.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// expandHome expands ~ in file paths to the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(homeDir, path[2:])
}
