package geometry

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/rasbt/screenlamp/internal/mol2"
)

// DefaultCacheSize bounds RecordCache when no size is given.
const DefaultCacheSize = 1024

// RecordCache keeps recently parsed reference records. Keys combine the
// record id with a hash of its text, so conformers sharing an id never
// collide. Cached records are shared read-only; the cache itself belongs to
// the coordinating goroutine.
type RecordCache struct {
	c      *lru.Cache[string, *mol2.Record]
	hits   int
	misses int
}

func NewRecordCache(size int) (*RecordCache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[string, *mol2.Record](size)
	if err != nil {
		return nil, err
	}
	return &RecordCache{c: c}, nil
}

func cacheKey(raw mol2.RawRecord) string {
	return raw.ID + "\x00" + strconv.FormatUint(xxhash.Sum64(raw.Text), 16)
}

// Get returns the parsed record for raw, parsing it on a miss.
func (rc *RecordCache) Get(raw mol2.RawRecord) (*mol2.Record, error) {
	key := cacheKey(raw)
	if rec, ok := rc.c.Get(key); ok {
		rc.hits++
		return rec, nil
	}
	rc.misses++
	rec, err := mol2.Parse(raw)
	if err != nil {
		return nil, err
	}
	rc.c.Add(key, rec)
	return rec, nil
}

// Stats returns hit and miss counts.
func (rc *RecordCache) Stats() (hits, misses int) { return rc.hits, rc.misses }

func (rc *RecordCache) Len() int { return rc.c.Len() }
