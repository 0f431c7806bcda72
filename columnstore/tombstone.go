package columnstore

import (
	"encoding/base64"

	"github.com/cespare/xxhash/v2"
)

// tombstoneSet tracks deleted keys by the base64 encoding of their raw
// bytes, bucketed by an xxhash digest of that encoding so membership tests
// don't degrade to a linear scan as the set grows — the same bucketing
// ristretto uses internally for its own key hashing, applied here directly
// rather than only transitively.
type tombstoneSet struct {
	buckets map[uint64][]string
}

func newTombstoneSet() *tombstoneSet {
	return &tombstoneSet{buckets: make(map[uint64][]string)}
}

func (s *tombstoneSet) encode(key []byte) (string, uint64) {
	enc := base64.StdEncoding.EncodeToString(key)
	return enc, xxhash.Sum64String(enc)
}

func (s *tombstoneSet) Add(key []byte) {
	enc, h := s.encode(key)
	bucket := s.buckets[h]
	for _, e := range bucket {
		if e == enc {
			return
		}
	}
	s.buckets[h] = append(bucket, enc)
}

func (s *tombstoneSet) Remove(key []byte) {
	enc, h := s.encode(key)
	bucket := s.buckets[h]
	for i, e := range bucket {
		if e == enc {
			s.buckets[h] = append(bucket[:i], bucket[i+1:]...)
			return
		}
	}
}

func (s *tombstoneSet) Contains(key []byte) bool {
	enc, h := s.encode(key)
	for _, e := range s.buckets[h] {
		if e == enc {
			return true
		}
	}
	return false
}
