// Package cmap provides a sharded concurrent map keyed by strings.
//
// Keys are spread over shards with murmur3; every shard has its own
// RWMutex, so callers touching different keys rarely contend. Callbacks
// passed to Compute, Range and DeleteFunc run under a shard lock and must
// not block or call back into the map.
//
// Usage:
//
//	m := cmap.New[*Params]()
//	m.Set("SN123", p)
//	p, ok := m.Get("SN123")
package cmap
