package datastore

import (
	"context"
	"encoding/json"
	"errors"
)

// Item is the attribute map persisted under a (hash key, range key) pair.
type Item map[string]any

var (
	// ErrConflict is returned by PutNew when the key pair already exists.
	ErrConflict = errors.New("datastore: key already exists")
	// ErrNotFound is returned by Update when the key pair does not exist.
	ErrNotFound = errors.New("datastore: key not found")
)

// Store is the key/range persistence collaborator. Hash keys partition
// records per owner ("SYSTEM#<name>", "USER#<email>"); range keys
// discriminate the record kind ("SYSTEM#...", "USER#...", "CVE#...").
// Operations are atomic per key; no multi-key transactions are offered.
type Store interface {
	// Put writes the item, replacing any existing record for the key pair.
	Put(ctx context.Context, hashKey, rangeKey string, attrs Item) error
	// PutNew writes the item only if the key pair is free.
	PutNew(ctx context.Context, hashKey, rangeKey string, attrs Item) error
	// Query returns all items under hashKey whose range key starts with
	// rangeKeyPrefix, in range-key order.
	Query(ctx context.Context, hashKey, rangeKeyPrefix string) ([]Item, error)
	// Update merges patch into the stored attributes with a single write.
	Update(ctx context.Context, hashKey, rangeKey string, patch Item) error
}

// Decode maps an item onto a typed record through its JSON tags.
func Decode(item Item, out any) error {
	raw, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// Encode turns a typed record into an item through its JSON tags.
func Encode(in any) (Item, error) {
	raw, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	var item Item
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, err
	}
	return item, nil
}
