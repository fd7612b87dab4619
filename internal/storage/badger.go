package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"torrentbot/internal/domain"
)

// BadgerRepository implements Repository on an in-memory BadgerDB.
// Nothing is written to disk; state is lost when the process exits.
type BadgerRepository struct {
	db  *badger.DB
	log logrus.FieldLogger
	seq atomic.Uint64
}

// NewBadgerRepository opens an in-memory BadgerDB.
func NewBadgerRepository(logger logrus.FieldLogger) (*BadgerRepository, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = &badgerLogger{logger.WithField("component", "badgerdb")}

	db, err := badger.Open(opts)
	if err != nil {
		logger.WithError(err).Error("Failed to open BadgerDB")
		return nil, fmt.Errorf("failed to open in-memory badger db: %w", err)
	}
	logger.Info("In-memory BadgerDB opened")

	return &BadgerRepository{
		db:  db,
		log: logger.WithField("component", "repository"),
	}, nil
}

// Close closes the BadgerDB database.
func (r *BadgerRepository) Close() error {
	r.log.Info("Closing BadgerDB...")
	if err := r.db.Close(); err != nil {
		r.log.WithError(err).Error("Error closing BadgerDB")
		return err
	}
	return nil
}

// Key layout:
//
//	search:{userID}             -> query
//	pref:{userID}               -> preferenceRecord (JSON)
//	added:{userID}:{seq}        -> domain.AddedTorrent (JSON)
var (
	searchPrefix = []byte("search:")
	addedPrefix  = []byte("added:")
)

func searchKey(userID int64) []byte {
	return []byte(fmt.Sprintf("search:%d", userID))
}

func preferenceKey(userID int64) []byte {
	return []byte(fmt.Sprintf("pref:%d", userID))
}

func userAddedPrefix(userID int64) []byte {
	return []byte(fmt.Sprintf("added:%d:", userID))
}

// addedKey zero-pads seq so keys sort in insertion order.
func addedKey(userID int64, seq uint64) []byte {
	return []byte(fmt.Sprintf("added:%d:%020d", userID, seq))
}

// preferenceRecord is the stored form of a UserPreference. JSON cannot
// encode +Inf, so an unbounded maximum is stored as a nil MaxSizeBytes.
type preferenceRecord struct {
	MinSizeBytes float64  `json:"min_size_bytes"`
	MaxSizeBytes *float64 `json:"max_size_bytes,omitempty"`
}

// SaveSearch stores query as the user's most recent search.
func (r *BadgerRepository) SaveSearch(ctx context.Context, userID int64, query string) error {
	err := r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(searchKey(userID), []byte(query))
	})
	if err != nil {
		r.log.WithError(err).WithField("user_id", userID).Error("Failed to save search")
		return fmt.Errorf("failed to save search for user %d: %w", userID, err)
	}
	return nil
}

// LastSearch returns the user's most recent search.
func (r *BadgerRepository) LastSearch(ctx context.Context, userID int64) (string, bool, error) {
	var query string
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(searchKey(userID))
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		query = string(val)
		return nil
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get search for user %d: %w", userID, err)
	}
	return query, true, nil
}

// SavePreference stores or replaces the user's size filter.
func (r *BadgerRepository) SavePreference(ctx context.Context, pref domain.UserPreference) error {
	record := preferenceRecord{MinSizeBytes: pref.MinSizeBytes}
	if !math.IsInf(pref.MaxSizeBytes, 1) {
		maxSize := pref.MaxSizeBytes
		record.MaxSizeBytes = &maxSize
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal preference: %w", err)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(preferenceKey(pref.UserID), data)
	})
	if err != nil {
		r.log.WithError(err).WithField("user_id", pref.UserID).Error("Failed to save preference")
		return fmt.Errorf("failed to save preference for user %d: %w", pref.UserID, err)
	}
	return nil
}

// Preference returns the user's size filter or the default one.
func (r *BadgerRepository) Preference(ctx context.Context, userID int64) (domain.UserPreference, error) {
	pref := domain.DefaultPreference(userID)

	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(preferenceKey(userID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var record preferenceRecord
			if err := json.Unmarshal(val, &record); err != nil {
				return fmt.Errorf("failed to unmarshal preference: %w", err)
			}
			pref.MinSizeBytes = record.MinSizeBytes
			if record.MaxSizeBytes != nil {
				pref.MaxSizeBytes = *record.MaxSizeBytes
			}
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.DefaultPreference(userID), nil
	}
	if err != nil {
		return domain.UserPreference{}, fmt.Errorf("failed to get preference for user %d: %w", userID, err)
	}
	return pref, nil
}

// AppendAddition adds an entry to the user's added-torrents log.
func (r *BadgerRepository) AppendAddition(ctx context.Context, userID int64, added domain.AddedTorrent) error {
	log := r.log.WithFields(logrus.Fields{
		"user_id": userID,
		"title":   added.Title,
	})

	if added.AddedAt.IsZero() {
		added.AddedAt = time.Now()
	}

	data, err := json.Marshal(added)
	if err != nil {
		log.WithError(err).Error("Failed to marshal addition to JSON")
		return fmt.Errorf("failed to marshal addition: %w", err)
	}

	key := addedKey(userID, r.seq.Add(1))
	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(key, data))
	})
	if err != nil {
		log.WithError(err).Error("Failed to save addition to BadgerDB")
		return fmt.Errorf("failed to save addition: %w", err)
	}

	log.Debug("Addition recorded")
	return nil
}

// Additions returns the user's added-torrents log, oldest first.
func (r *BadgerRepository) Additions(ctx context.Context, userID int64) ([]domain.AddedTorrent, error) {
	var additions []domain.AddedTorrent

	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := userAddedPrefix(userID)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				var added domain.AddedTorrent
				if err := json.Unmarshal(val, &added); err != nil {
					return fmt.Errorf("failed to unmarshal addition for key %s: %w", string(item.Key()), err)
				}
				additions = append(additions, added)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		r.log.WithError(err).WithField("user_id", userID).Error("Failed to retrieve additions")
		return nil, fmt.Errorf("failed to get additions for user %d: %w", userID, err)
	}
	return additions, nil
}

// Stats counts recorded searches and added torrents across all users.
func (r *BadgerRepository) Stats(ctx context.Context) (Stats, error) {
	var stats Stats

	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().Key()
			switch {
			case bytes.HasPrefix(key, searchPrefix):
				stats.Searches++
			case bytes.HasPrefix(key, addedPrefix):
				stats.Additions++
			}
		}
		return nil
	})
	if err != nil {
		return Stats{}, fmt.Errorf("failed to compute stats: %w", err)
	}
	return stats, nil
}

// --- BadgerDB Internal Logger ---

// badgerLogger adapts logrus.FieldLogger to Badger's logger interface.
// Badger info output is logged at debug level.
type badgerLogger struct {
	logger logrus.FieldLogger
}

func (l *badgerLogger) Errorf(f string, v ...interface{}) {
	l.logger.Errorf(f, v...)
}
func (l *badgerLogger) Warningf(f string, v ...interface{}) {
	l.logger.Warningf(f, v...)
}
func (l *badgerLogger) Infof(f string, v ...interface{}) {
	l.logger.Debugf(f, v...)
}
func (l *badgerLogger) Debugf(f string, v ...interface{}) {
	l.logger.Debugf(f, v...)
}
