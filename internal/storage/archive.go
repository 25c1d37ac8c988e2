package storage

import (
	"encoding/json"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"prodflow/collab-gateway/models"
)

// BadgerArchive retains the durable slice of review-session state so
// a restarted gateway can seed catch-up state for rejoining clients.
// Keys are prefixed per session and kind, which makes Load a pair of
// prefix scans.
type BadgerArchive struct {
	db *badger.DB
}

// NewBadgerArchive opens (or creates) the archive at dirPath. An
// empty dirPath opens an in-memory archive, used by tests.
func NewBadgerArchive(dirPath string) (*BadgerArchive, error) {
	opts := badger.DefaultOptions(dirPath).
		WithLoggingLevel(badger.ERROR)
	if dirPath == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open session archive: %w", err)
	}
	return &BadgerArchive{db: db}, nil
}

func (a *BadgerArchive) Close() error { return a.db.Close() }

func annotationKey(sessionID, id string) []byte {
	return []byte("ann/" + sessionID + "/" + id)
}

func commentKey(sessionID, id string) []byte {
	return []byte("cmt/" + sessionID + "/" + id)
}

func (a *BadgerArchive) SaveAnnotation(sessionID string, ann models.Annotation) error {
	data, err := json.Marshal(ann)
	if err != nil {
		return fmt.Errorf("encode annotation %s: %w", ann.ID, err)
	}
	return a.db.Update(func(txn *badger.Txn) error {
		return txn.Set(annotationKey(sessionID, ann.ID), data)
	})
}

func (a *BadgerArchive) DeleteAnnotation(sessionID, annotationID string) error {
	return a.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(annotationKey(sessionID, annotationID))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		return err
	})
}

func (a *BadgerArchive) SaveComment(sessionID string, c models.Comment) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode comment %s: %w", c.ID, err)
	}
	return a.db.Update(func(txn *badger.Txn) error {
		return txn.Set(commentKey(sessionID, c.ID), data)
	})
}

func (a *BadgerArchive) DeleteComment(sessionID, commentID string) error {
	return a.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(commentKey(sessionID, commentID))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		return err
	})
}

// Load returns everything archived for a session.
func (a *BadgerArchive) Load(sessionID string) ([]models.Annotation, []models.Comment, error) {
	var annotations []models.Annotation
	var comments []models.Comment

	err := a.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		annPrefix := []byte("ann/" + sessionID + "/")
		for it.Seek(annPrefix); it.ValidForPrefix(annPrefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var ann models.Annotation
				if err := json.Unmarshal(val, &ann); err != nil {
					return err
				}
				annotations = append(annotations, ann)
				return nil
			})
			if err != nil {
				return err
			}
		}

		cmtPrefix := []byte("cmt/" + sessionID + "/")
		for it.Seek(cmtPrefix); it.ValidForPrefix(cmtPrefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var c models.Comment
				if err := json.Unmarshal(val, &c); err != nil {
					return err
				}
				comments = append(comments, c)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	return annotations, comments, nil
}
