// Package distcache persists computed backward-distance maps in a
// BoltDB file so repeated analysis runs over the same module skip
// recomputation. It sits in front of cfg.Graph exactly the way the
// teacher's boltCache sits in front of a source manager: one top-level
// bucket per query kind (intra, inter) holding one sub-bucket per cache
// key, populated lazily on first miss.
package distcache

import (
	"encoding/binary"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/boltdb/bolt"
	"github.com/jmank88/nuts"
	"github.com/pkg/errors"

	"github.com/Columpio/klee/cfg"
)

var (
	bucketIntra = []byte("intra")
	bucketInter = []byte("inter")
)

// Cache wraps a bolt.DB used to memoize cfg.Graph's two BFS queries.
// Safe for concurrent use (bolt.DB itself is).
type Cache struct {
	db     *bolt.DB
	logger *log.Logger
}

// Open returns a Cache backed by a BoltDB file at path, creating parent
// directories as needed. logger receives non-fatal cache-layer warnings;
// a nil logger sends them to os.Stderr.
func Open(path string, logger *log.Logger) (*Cache, error) {
	dir := filepath.Dir(path)
	if fi, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, os.ModeDir|os.ModePerm); err != nil {
			return nil, errors.Wrapf(err, "distcache: failed to create cache directory %q", dir)
		}
	} else if err != nil {
		return nil, errors.Wrapf(err, "distcache: failed to stat cache directory %q", dir)
	} else if !fi.IsDir() {
		return nil, errors.Errorf("distcache: cache path %q is not a directory", dir)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "distcache: failed to open cache file %q", path)
	}
	if logger == nil {
		logger = log.New(os.Stderr, "", 0)
	}
	return &Cache{db: db, logger: logger}, nil
}

// Close releases the underlying BoltDB file.
func (c *Cache) Close() error {
	return errors.Wrap(c.db.Close(), "distcache: error closing cache file")
}

// locationKey renders a Location as a bucket-safe byte key.
func locationKey(loc cfg.Location) []byte {
	return []byte(loc.Func + "\x00" + loc.Block)
}

// putDistPairs stores each DistPair as a "func\x00block" key with its
// distance as a minimal-length big-endian value (nuts.Key sized by
// nuts.KeyLen), the same split the teacher uses between bucket keys and
// small scalar values.
func putDistPairs(b *bolt.Bucket, pairs []cfg.DistPair) error {
	for _, dp := range pairs {
		k := make(nuts.Key, nuts.KeyLen(uint64(dp.Distance)))
		k.Put(uint64(dp.Distance))
		if err := b.Put(locationKey(dp.Loc), k); err != nil {
			return errors.Wrapf(err, "distcache: failed to put distance for %v", dp.Loc)
		}
	}
	return nil
}

func getDistPairs(b *bolt.Bucket) ([]cfg.DistPair, error) {
	var out []cfg.DistPair
	err := b.ForEach(func(k, v []byte) error {
		loc, err := decodeLocationKey(k)
		if err != nil {
			return err
		}
		if len(v) == 0 || len(v) > 8 {
			return errors.Errorf("distcache: malformed distance value for %v", loc)
		}
		var padded [8]byte
		copy(padded[8-len(v):], v)
		out = append(out, cfg.DistPair{Loc: loc, Distance: int(binary.BigEndian.Uint64(padded[:]))})
		return nil
	})
	return out, err
}

func decodeLocationKey(k []byte) (cfg.Location, error) {
	for i, b := range k {
		if b == 0 {
			return cfg.Location{Func: string(k[:i]), Block: string(k[i+1:])}, nil
		}
	}
	return cfg.Location{}, errors.Errorf("distcache: malformed location key %q", k)
}

// BackwardDistanceIntra returns graph.BackwardDistanceIntra(loc), serving
// the result from cache when present and populating the cache on miss.
func (c *Cache) BackwardDistanceIntra(graph *cfg.Graph, loc cfg.Location) []cfg.DistPair {
	sub, err := c.getSub(bucketIntra, locationKey(loc))
	if err != nil {
		c.logger.Println(errors.Wrap(err, "distcache: intra-distance lookup failed"))
	} else if sub != nil {
		return sub
	}

	dps := graph.BackwardDistanceIntra(loc)
	if err := c.putSub(bucketIntra, locationKey(loc), dps); err != nil {
		c.logger.Println(errors.Wrap(err, "distcache: failed to cache intra-distance"))
	}
	return dps
}

// BackwardDistanceInter returns graph.BackwardDistanceInter(fn), serving
// the result from cache when present and populating the cache on miss.
func (c *Cache) BackwardDistanceInter(graph *cfg.Graph, fn string) []cfg.DistPair {
	sub, err := c.getSub(bucketInter, []byte(fn))
	if err != nil {
		c.logger.Println(errors.Wrap(err, "distcache: inter-distance lookup failed"))
	} else if sub != nil {
		return sub
	}

	dps := graph.BackwardDistanceInter(fn)
	if err := c.putSub(bucketInter, []byte(fn), dps); err != nil {
		c.logger.Println(errors.Wrap(err, "distcache: failed to cache inter-distance"))
	}
	return dps
}

// getSub returns nil, nil on a clean cache miss (no sub-bucket yet).
func (c *Cache) getSub(topBucket, subKey []byte) ([]cfg.DistPair, error) {
	var out []cfg.DistPair
	var found bool
	err := c.db.View(func(tx *bolt.Tx) error {
		top := tx.Bucket(topBucket)
		if top == nil {
			return nil
		}
		sub := top.Bucket(subKey)
		if sub == nil {
			return nil
		}
		var err error
		out, err = getDistPairs(sub)
		found = true
		return err
	})
	if err != nil || !found {
		return nil, err
	}
	if out == nil {
		// A cached empty result is still a hit.
		out = []cfg.DistPair{}
	}
	return out, nil
}

func (c *Cache) putSub(topBucket, subKey []byte, dps []cfg.DistPair) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		top, err := tx.CreateBucketIfNotExists(topBucket)
		if err != nil {
			return err
		}
		if top.Bucket(subKey) != nil {
			if err := top.DeleteBucket(subKey); err != nil {
				return err
			}
		}
		sub, err := top.CreateBucket(subKey)
		if err != nil {
			return err
		}
		return putDistPairs(sub, dps)
	})
}
