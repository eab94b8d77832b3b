package kfolio

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/etnz/kfolio/date"
	"go.uber.org/zap"
)

// DefaultTTL is how long a latest-price cache entry stays fresh.
const DefaultTTL = time.Hour

// RateCache persists resolved exchange rates on disk.
//
// Two regimes coexist: a latest price, stored under "{from}_{to}_latest", goes
// stale after the cache TTL; a historical series, stored under "{from}_{to}",
// never expires because a past day's rate is immutable. Historical files hold
// a full day-indexed series and are appended to over time.
//
// Lookups never fail: a missing, stale or unreadable entry is simply absent.
// Writes are atomic (temp file and rename) and write errors are logged and
// ignored, the next lookup will just miss.
type RateCache struct {
	dir string
	ttl time.Duration
	log *zap.Logger

	now func() time.Time // test hook
}

// NewRateCache returns a cache rooted at dir, creating it if needed.
// A non-positive ttl falls back to DefaultTTL.
func NewRateCache(dir string, ttl time.Duration, log *zap.Logger) (*RateCache, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("cannot create cache dir %q: %w", dir, err)
	}
	return &RateCache{dir: dir, ttl: ttl, log: log, now: time.Now}, nil
}

// entry is the persisted envelope, one per file.
type entry struct {
	Value  float64      `json:"value,omitempty"`
	Series *date.Series `json:"series,omitempty"`
	TS     time.Time    `json:"ts"`
}

func latestKey(from, to string) string { return fmt.Sprintf("%s_%s_latest", from, to) }
func seriesKey(from, to string) string { return fmt.Sprintf("%s_%s", from, to) }

func (c *RateCache) path(key string) string { return filepath.Join(c.dir, key+".json") }

func (c *RateCache) read(key string) (entry, bool) {
	var e entry
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return e, false
	}
	if err := json.Unmarshal(data, &e); err != nil {
		c.log.Warn("discarding unreadable cache entry", zap.String("key", key), zap.Error(err))
		return e, false
	}
	return e, true
}

func (c *RateCache) write(key string, e entry) {
	e.TS = c.now()
	data, err := json.Marshal(e)
	if err != nil {
		c.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		return
	}
	// Write to a temp file and rename so a crash cannot leave a truncated entry.
	final := c.path(key)
	tmp, err := os.CreateTemp(c.dir, key+".*.tmp")
	if err != nil {
		c.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		return
	}
	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if werr == nil {
		werr = cerr
	}
	if werr == nil {
		werr = os.Rename(tmp.Name(), final)
	}
	if werr != nil {
		os.Remove(tmp.Name())
		c.log.Warn("cache write failed", zap.String("key", key), zap.Error(werr))
	}
}

// Latest returns the cached latest rate for the pair, if fresh.
func (c *RateCache) Latest(from, to string) (float64, bool) {
	e, ok := c.read(latestKey(from, to))
	if !ok {
		return 0, false
	}
	if c.now().Sub(e.TS) > c.ttl {
		return 0, false
	}
	return e.Value, true
}

// PutLatest stores the latest rate for the pair.
func (c *RateCache) PutLatest(from, to string, v float64) {
	c.write(latestKey(from, to), entry{Value: v})
}

// Series returns the cached historical series for the pair. It never expires.
func (c *RateCache) Series(from, to string) (*date.Series, bool) {
	e, ok := c.read(seriesKey(from, to))
	if !ok || e.Series == nil || e.Series.Len() == 0 {
		return nil, false
	}
	return e.Series, true
}

// PutSeries merges s into the stored historical series for the pair.
func (c *RateCache) PutSeries(from, to string, s *date.Series) {
	stored, ok := c.Series(from, to)
	if !ok {
		stored = new(date.Series)
	}
	stored.Merge(s)
	c.write(seriesKey(from, to), entry{Series: stored})
}

// On returns the cached rate for the pair on a given day: the exact day when
// present, otherwise the nearest day available in the stored series.
func (c *RateCache) On(from, to string, on date.Date) (float64, bool) {
	s, ok := c.Series(from, to)
	if !ok {
		return 0, false
	}
	if v, ok := s.Get(on); ok {
		return v, true
	}
	return s.Nearest(on)
}
