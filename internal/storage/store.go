package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	credentialsBucket = []byte("credentials")
	currentKey        = []byte("current")
)

// ErrNoCredentials is returned when nothing has been saved.
var ErrNoCredentials = errors.New("no stored credentials")

type Store struct {
	db *bolt.DB
}

func NewStore(dbPath string, timeout time.Duration) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("credential store path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}
	if timeout <= 0 {
		timeout = 1 * time.Second
	}

	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, createErr := tx.CreateBucketIfNotExists(credentialsBucket)
		return createErr
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveCredentials replaces the stored login.
func (s *Store) SaveCredentials(username, token string) error {
	if username == "" || token == "" {
		return fmt.Errorf("username and token are required")
	}
	creds := Credentials{Username: username, Token: token, SavedAt: time.Now().UTC()}
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(creds)
		if err != nil {
			return err
		}
		return tx.Bucket(credentialsBucket).Put(currentKey, data)
	})
}

// LoadCredentials returns the saved login or ErrNoCredentials.
func (s *Store) LoadCredentials() (Credentials, error) {
	var creds Credentials
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(credentialsBucket).Get(currentKey)
		if data == nil {
			return ErrNoCredentials
		}
		return json.Unmarshal(data, &creds)
	})
	return creds, err
}

// ClearCredentials forgets the saved login. Clearing an empty store is not an
// error.
func (s *Store) ClearCredentials() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(credentialsBucket).Delete(currentKey)
	})
}
