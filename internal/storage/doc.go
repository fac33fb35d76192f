// Package storage persists the device connection-parameter registry.
//
//   - kv.go: the KVEngine abstraction
//   - badger.go: Badger v3 implementation (on disk or in memory)
//   - registry.go: Registry, a cmap-backed view with write-through to KV
//
// The registry is read on every device request and written rarely, so reads
// come from the in-memory map and writes go to the KV engine first.
package storage
