package session

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"

	model "github.com/zhouzirui/seance/backend/internal/model/session"
)

// badgerStore persists sessions as "session:{id}" and messages as
// "msg:{hex(session)}:{unix_nano_19}:{uuid}" so that a prefix scan yields
// them in chronological order. The session id is hex encoded because it is
// client supplied and may itself contain ':'.
type badgerStore struct {
	db          *badger.DB
	maxMessages int
}

func openBadgerStore(db *badger.DB, maxMessages int) *badgerStore {
	if maxMessages <= 0 {
		maxMessages = defaultMaxStoredMessages
	}
	return &badgerStore{db: db, maxMessages: maxMessages}
}

func sessionKey(id string) []byte {
	return []byte("session:" + id)
}

func messagePrefix(sessionID string) []byte {
	return []byte("msg:" + hex.EncodeToString([]byte(sessionID)) + ":")
}

func messageKey(msg model.Message) []byte {
	id := msg.ID
	if id == "" {
		id = uuid.NewString()
	}
	return []byte(fmt.Sprintf("%s%019d:%s", messagePrefix(msg.SessionID), msg.CreatedAt.UnixNano(), id))
}

func (s *badgerStore) CreateSession(_ context.Context, session model.Session) error {
	if session.ID == "" {
		return ErrSessionIDMissing
	}
	value, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(sessionKey(session.ID), value)
	})
}

func (s *badgerStore) GetSession(_ context.Context, id string) (model.Session, error) {
	var session model.Session
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(sessionKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			return json.Unmarshal(value, &session)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return model.Session{}, ErrSessionNotFound
	}
	if err != nil {
		return model.Session{}, fmt.Errorf("get session %s: %w", id, err)
	}
	return session, nil
}

func (s *badgerStore) AppendMessages(_ context.Context, sessionID string, msgs ...model.Message) error {
	if sessionID == "" {
		return ErrSessionIDMissing
	}
	return s.db.Update(func(txn *badger.Txn) error {
		for _, msg := range msgs {
			msg.SessionID = sessionID
			value, err := json.Marshal(msg)
			if err != nil {
				return fmt.Errorf("marshal message: %w", err)
			}
			if err := txn.Set(messageKey(msg), value); err != nil {
				return err
			}
		}
		return s.trim(txn, sessionID)
	})
}

// trim deletes everything older than the newest maxMessages entries.
func (s *badgerStore) trim(txn *badger.Txn, sessionID string) error {
	prefix := messagePrefix(sessionID)
	options := badger.DefaultIteratorOptions
	options.Reverse = true
	options.PrefetchValues = false
	options.Prefix = prefix
	it := txn.NewIterator(options)

	var stale [][]byte
	kept := 0
	for it.Seek(append(append([]byte(nil), prefix...), 0xFF)); it.ValidForPrefix(prefix); it.Next() {
		if kept < s.maxMessages {
			kept++
			continue
		}
		stale = append(stale, it.Item().KeyCopy(nil))
	}
	it.Close()

	for _, key := range stale {
		if err := txn.Delete(key); err != nil {
			return fmt.Errorf("trim messages of %s: %w", sessionID, err)
		}
	}
	return nil
}

// RecentMessages walks the session prefix backwards from its end and stops
// after limit entries.
func (s *badgerStore) RecentMessages(_ context.Context, sessionID string, limit int) ([]model.Message, error) {
	var messages []model.Message
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := messagePrefix(sessionID)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(append(append([]byte(nil), prefix...), 0xFF)); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(messages) == limit {
				break
			}
			var msg model.Message
			if err := it.Item().Value(func(value []byte) error {
				return json.Unmarshal(value, &msg)
			}); err != nil {
				return err
			}
			messages = append(messages, msg)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan messages of %s: %w", sessionID, err)
	}
	return lo.Reverse(messages), nil
}

func (s *badgerStore) Close() error {
	return s.db.Close()
}
