// Package storage defines the durable key-value persistence boundary.
//
// The engine persists each vault as a small set of serialized collections.
// Providers are deliberately dumb: a read that finds nothing returns
// (nil, nil), and the engine treats write failures as non-fatal.
package storage

// Collections persisted per vault.
const (
	CollectionPages    = "pages"
	CollectionBlocks   = "blocks"
	CollectionBooks    = "books"
	CollectionConcepts = "concepts"
)

// Collections lists every per-vault collection in load order.
var Collections = []string{
	CollectionPages,
	CollectionBlocks,
	CollectionBooks,
	CollectionConcepts,
}

// Provider is the interface for durable vault persistence.
type Provider interface {
	// Read returns the stored bytes for a vault collection, or (nil, nil)
	// when nothing has been written yet.
	Read(vaultID, collection string) ([]byte, error)
	// Write durably stores the bytes for a vault collection.
	Write(vaultID, collection string, data []byte) error
	// DeleteVault removes every collection stored for a vault.
	DeleteVault(vaultID string) error
	// ReadIndex returns the global vault index, or (nil, nil) when absent.
	ReadIndex() ([]byte, error)
	// WriteIndex durably stores the global vault index.
	WriteIndex(data []byte) error
	// Close releases underlying resources.
	Close() error
}
