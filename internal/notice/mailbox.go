// Package notice keeps short-lived per-user notices so a client that
// redirects after an upload can still show the result.
package notice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/listenupapp/bulkmeta/internal/domain"
	"github.com/listenupapp/bulkmeta/internal/report"
)

// DefaultTTL is how long a notice waits to be read.
const DefaultTTL = 60 * time.Second

const keyPrefix = "notice:"

// Mailbox stores at most one notice per user and severity. Posting again
// with the same severity replaces the earlier notice. Reading drains.
type Mailbox struct {
	db     *badger.DB
	logger *slog.Logger
	ttl    time.Duration
}

// Options configures a Mailbox.
type Options struct {
	Path     string        // Directory for the database; ignored when InMemory
	InMemory bool          // Keep notices in memory only
	TTL      time.Duration // Defaults to DefaultTTL
	Logger   *slog.Logger
}

// Open opens or creates the mailbox database.
func Open(opts Options) (*Mailbox, error) {
	bopts := badger.DefaultOptions(opts.Path)
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	}
	bopts.Logger = nil // Disable Badger's internal logging

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("failed to open notice db: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	logger.Info("notice mailbox opened", "path", opts.Path, "in_memory", opts.InMemory, "ttl", ttl)
	return &Mailbox{db: db, logger: logger, ttl: ttl}, nil
}

// Close closes the underlying database.
func (m *Mailbox) Close() error {
	return m.db.Close()
}

func userPrefix(userID string) []byte {
	return []byte(keyPrefix + userID + ":")
}

func noticeKey(userID string, severity domain.Severity) []byte {
	return append(userPrefix(userID), string(severity)...)
}

// Post stores n for the user until it is drained or expires.
func (m *Mailbox) Post(_ context.Context, userID string, n report.Notice) error {
	if userID == "" {
		return errors.New("notice: empty user id")
	}
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notice: %w", err)
	}

	return m.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(noticeKey(userID, n.Severity), data).WithTTL(m.ttl)
		return txn.SetEntry(e)
	})
}

// Drain returns and removes every pending notice for the user, most severe
// first. Expired notices are never returned.
func (m *Mailbox) Drain(_ context.Context, userID string) ([]report.Notice, error) {
	var notices []report.Notice

	err := m.db.Update(func(txn *badger.Txn) error {
		prefix := userPrefix(userID)
		it := txn.NewIterator(badger.DefaultIteratorOptions)

		var keys [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			keys = append(keys, item.KeyCopy(nil))

			err := item.Value(func(val []byte) error {
				var n report.Notice
				if err := json.Unmarshal(val, &n); err != nil {
					return err
				}
				notices = append(notices, n)
				return nil
			})
			if err != nil {
				it.Close()
				return fmt.Errorf("failed to decode notice: %w", err)
			}
		}
		it.Close()

		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(notices, func(i, j int) bool {
		return rank(notices[i].Severity) > rank(notices[j].Severity)
	})
	return notices, nil
}

func rank(s domain.Severity) int {
	switch s {
	case domain.SeverityError:
		return 3
	case domain.SeverityWarning:
		return 2
	case domain.SeverityInfo:
		return 1
	}
	return 0
}
