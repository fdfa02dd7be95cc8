package cache

import (
	"strings"
	"testing"
	"time"
)

func TestKey_Stable(t *testing.T) {
	a := Key("search", "acme", "fast")
	b := Key("search", "acme", "fast")
	c := Key("search", "acme", "thorough")
	if a != b {
		t.Error("expected identical keys for identical parts")
	}
	if a == c {
		t.Error("expected different keys for different parts")
	}
	if !strings.HasPrefix(a, "diligentia:v1:search:") {
		t.Errorf("unexpected key prefix: %s", a)
	}
}

func TestMemoryCache_SetGetCopy(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	value := []byte("hello")
	if err := c.Set("k", value, 0); err != nil {
		t.Fatal(err)
	}
	value[0] = 'j'

	got, ok := c.Get("k")
	if !ok || string(got) != "hello" {
		t.Errorf("expected stored copy 'hello', got %q (%v)", got, ok)
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", c.Len())
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	_ = c.Set("k", []byte("v"), 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("expected entry to expire")
	}
}

func TestDiskCache_RoundTripAndExpiry(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)
	key := Key("store", "job-1")

	if err := c.Set(key, []byte("payload"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, ok := c.Get(key)
	if !ok || string(got) != "payload" {
		t.Errorf("expected payload, got %q (%v)", got, ok)
	}

	if err := c.Set(key, []byte("old"), -time.Second); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get(key); ok {
		t.Error("expected expired entry to be dropped")
	}
	if err := c.Delete(key); err != nil {
		t.Errorf("deleting a missing entry should not fail: %v", err)
	}
}

func TestLayeredCache_PromotesFromDisk(t *testing.T) {
	dir := t.TempDir()
	layered := NewLayeredCache(time.Minute, dir, time.Hour)
	disk := NewDiskCache(dir, time.Hour)

	_ = disk.Set("k", []byte("from-disk"), 0)
	got, ok := layered.Get("k")
	if !ok || string(got) != "from-disk" {
		t.Fatalf("expected disk hit, got %q (%v)", got, ok)
	}
	if _, ok := layered.fast.Get("k"); !ok {
		t.Error("expected value promoted to memory")
	}
}

func TestLayeredCache_SetWritesBothAndClears(t *testing.T) {
	fast := NewMemoryCache(time.Minute, time.Minute)
	durable := NewDiskCache(t.TempDir(), time.Hour)
	layered := NewLayered(fast, durable, time.Second)

	if err := layered.Set("k", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}
	if _, ok := fast.Get("k"); !ok {
		t.Error("expected value in fast layer")
	}
	if _, ok := durable.Get("k"); !ok {
		t.Error("expected value in durable layer")
	}

	if err := layered.Delete("k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok := layered.Get("k"); ok {
		t.Error("expected miss after delete")
	}
	if err := layered.Clear(); err != nil {
		t.Errorf("Clear failed: %v", err)
	}
}

func TestJSONHelpers(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	type payload struct{ N int }

	if err := SetJSON(c, "k", payload{N: 7}, 0); err != nil {
		t.Fatal(err)
	}
	var out payload
	found, err := GetJSON(c, "k", &out)
	if err != nil || !found || out.N != 7 {
		t.Errorf("expected N=7, got %+v found=%v err=%v", out, found, err)
	}

	found, err = GetJSON(c, "missing", &out)
	if err != nil || found {
		t.Errorf("expected miss without error, got found=%v err=%v", found, err)
	}
}
