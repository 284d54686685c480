//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/dgraph-io/badger/v4"
)

type IMessageRepository interface {
	StoreMessage(message DiskMessage) error
	GetMessages(session string, cursor *string) ([]DiskMessage, *string, error)
}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) MessageRepository {
	return MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

// DiskMessage is the journal representation of a relayed message.
type DiskMessage struct {
	ID         string
	Session    string
	Text       string
	Sender     string
	Origin     string
	Connection string
	ClientID   string
	At         time.Time
}

// SessionPrefix escapes the session id so that "a" never prefix-matches "a:b".
func SessionPrefix(session string) []byte {
	return []byte(fmt.Sprintf("msg:%s:", url.QueryEscape(session)))
}

// Cursor is the key suffix of a message inside its session, it sorts chronologically.
// History cursors are cursors of the last message served.
func Cursor(at time.Time, id string) string {
	return fmt.Sprintf("%019d:%s", at.UnixNano(), id)
}

// StoreMessage persists a message in BadgerDB.
// The key is formatted as "msg:{session}:{timestamp_padded}:{id}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Keep both messages if two of them share the same nanosecond.
func (m MessageRepository) StoreMessage(message DiskMessage) error {
	key := string(SessionPrefix(message.Session)) + Cursor(message.At, message.ID)
	value := encodeMessage(message)
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

// GetMessages returns a page of messages for a session, newest first.
// The returned cursor is nil once the oldest message has been read.
func (m MessageRepository) GetMessages(session string, cursor *string) ([]DiskMessage, *string, error) {
	var values [][]byte
	var lastKey string
	more := false

	err := m.db.View(func(txn *badger.Txn) error {
		prefix := SessionPrefix(session)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Reverse iteration lands on the greatest key lower or equal to the seek key
		seekKey := append(append([]byte{}, prefix...), 0xff)
		if cursor != nil {
			seekKey = append(append([]byte{}, prefix...), []byte(*cursor)...)
		}
		it.Seek(seekKey)

		if cursor != nil && it.ValidForPrefix(prefix) && bytes.Equal(it.Item().Key(), seekKey) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(values) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d message reached", *m.limitMessages))
				more = true
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[len(prefix):])
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			values = append(values, value)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	messages := make([]DiskMessage, 0, len(values))
	for _, v := range values {
		message, err := DecodeMessage(v)
		if err != nil {
			return nil, nil, err
		}
		messages = append(messages, message)
	}

	if !more {
		return messages, nil, nil
	}
	return messages, &lastKey, nil
}
