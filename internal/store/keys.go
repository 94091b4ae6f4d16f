package store

import "sync"

// docKeyPrefix namespaces document records in the badger key space.
const docKeyPrefix = "doc:"

// keyPool provides reusable byte slices for building database keys.
var keyPool = sync.Pool{
	New: func() any {
		// Covers "doc:" plus a few path segments of NanoID-sized ids.
		return make([]byte, 0, 256)
	},
}

// buildKey constructs the badger key for a document path using a pooled buffer.
// Callers MUST call releaseKey when done with the key.
//
// Usage:
//
//	key := buildKey(path)
//	defer releaseKey(key)
//	item, err := txn.Get(key)
func buildKey(p Path) []byte {
	buf, _ := keyPool.Get().([]byte)
	buf = buf[:0]
	buf = append(buf, docKeyPrefix...)
	buf = append(buf, string(p)...)
	return buf
}

// recordKey allocates a key that may be retained by a write transaction.
// Pooled keys are only safe for reads.
func recordKey(p Path) []byte {
	return []byte(docKeyPrefix + string(p))
}

// pathFromKey strips the record prefix from a badger key.
func pathFromKey(key []byte) Path {
	return Path(key[len(docKeyPrefix):])
}

// releaseKey returns a key buffer to the pool for reuse.
// After calling this, the key slice must not be used.
func releaseKey(key []byte) {
	// Avoid keeping oversized buffers in the pool.
	if cap(key) <= 512 {
		keyPool.Put(key[:0])
	}
}
