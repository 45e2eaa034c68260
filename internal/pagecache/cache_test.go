package pagecache_test

import (
	"testing"
	"time"

	"crownworks/internal/logging"
	"crownworks/internal/pagecache"
)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

func newTestCache(fresh, stale time.Duration) (*pagecache.Cache, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	cache := pagecache.New(fresh, stale, logging.NewNop(), pagecache.WithClock(clock.Now))
	return cache, clock
}

func TestGetMissesWithoutPut(t *testing.T) {
	cache, _ := newTestCache(time.Minute, 5*time.Minute)

	if _, ok := cache.Get("page:/"); ok {
		t.Fatal("expected miss for never-written key")
	}
}

func TestFreshnessWindows(t *testing.T) {
	cache, clock := newTestCache(time.Minute, 5*time.Minute)

	cache.Put("page:/", "<html>home</html>")

	res, ok := cache.Get("page:/")
	if !ok || res.Status != pagecache.StatusHit {
		t.Fatalf("expected immediate hit, got ok=%v res=%#v", ok, res)
	}
	if res.HTML != "<html>home</html>" {
		t.Fatalf("expected stored html back, got %q", res.HTML)
	}

	// End of fresh window is still a hit.
	clock.Advance(time.Minute)
	res, ok = cache.Get("page:/")
	if !ok || res.Status != pagecache.StatusHit {
		t.Fatalf("expected hit at fresh boundary, got ok=%v res=%#v", ok, res)
	}

	// Inside the stale window.
	clock.Advance(time.Second)
	res, ok = cache.Get("page:/")
	if !ok || res.Status != pagecache.StatusStale {
		t.Fatalf("expected stale, got ok=%v res=%#v", ok, res)
	}
	if res.HTML != "<html>home</html>" {
		t.Fatal("expected stale reads to serve the stored html")
	}

	// Past the stale window the entry is evicted.
	clock.Advance(5 * time.Minute)
	if _, ok := cache.Get("page:/"); ok {
		t.Fatal("expected eviction past stale window")
	}
	if cache.Len() != 0 {
		t.Fatalf("expected lazy eviction to remove the entry, len=%d", cache.Len())
	}
}

func TestPutEnforcesMinimumTTLs(t *testing.T) {
	cache, clock := newTestCache(0, 0)

	cache.Put("page:/", "x")
	clock.Advance(500 * time.Millisecond)

	res, ok := cache.Get("page:/")
	if !ok || res.Status != pagecache.StatusHit {
		t.Fatalf("expected sub-second read to hit under minimum TTLs, got ok=%v res=%#v", ok, res)
	}
}

func TestPutReplacesEntryAndResetsFlags(t *testing.T) {
	cache, clock := newTestCache(time.Minute, time.Minute)

	cache.Put("page:/", "v1")
	cache.SetRevalidating("page:/", true)

	clock.Advance(90 * time.Second)
	cache.Put("page:/", "v2")

	if cache.IsRevalidating("page:/") {
		t.Fatal("expected revalidating flag cleared by Put")
	}
	res, ok := cache.Get("page:/")
	if !ok || res.Status != pagecache.StatusHit || res.HTML != "v2" {
		t.Fatalf("expected fresh replacement, got ok=%v res=%#v", ok, res)
	}
}

func TestRevalidatingFlag(t *testing.T) {
	cache, _ := newTestCache(time.Minute, time.Minute)

	if cache.IsRevalidating("page:/") {
		t.Fatal("absent key must not report revalidating")
	}

	cache.Put("page:/", "x")
	cache.SetRevalidating("page:/", true)
	if !cache.IsRevalidating("page:/") {
		t.Fatal("expected flag set")
	}
	cache.SetRevalidating("page:/", false)
	if cache.IsRevalidating("page:/") {
		t.Fatal("expected flag cleared")
	}

	// Setting a flag on a missing key stays a no-op.
	cache.SetRevalidating("page:missing", true)
	if cache.IsRevalidating("page:missing") {
		t.Fatal("flag on absent key should not create an entry")
	}
}

func TestInvalidateByPrefix(t *testing.T) {
	cache, _ := newTestCache(time.Minute, time.Minute)

	cache.Put("page:/", "home")
	cache.Put("page:service:x", "service")

	removed := cache.Invalidate("page:service:")
	if removed != 1 {
		t.Fatalf("expected one entry removed, got %d", removed)
	}
	if _, ok := cache.Get("page:service:x"); ok {
		t.Fatal("expected prefixed entry removed")
	}
	res, ok := cache.Get("page:/")
	if !ok || res.Status != pagecache.StatusHit {
		t.Fatalf("expected unrelated entry to survive, got ok=%v res=%#v", ok, res)
	}
}

func TestInvalidateAll(t *testing.T) {
	cache, _ := newTestCache(time.Minute, time.Minute)

	cache.Put("page:/", "home")
	cache.Put("page:about", "about")

	removed := cache.Invalidate("")
	if removed != 2 {
		t.Fatalf("expected both entries removed, got %d", removed)
	}
	if cache.Len() != 0 {
		t.Fatalf("expected empty cache, len=%d", cache.Len())
	}
}
