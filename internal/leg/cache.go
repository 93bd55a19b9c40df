package leg

import (
	"sort"
	"sync"
)

// Cache is the associative store keyed by thread-id or GID, holding an
// insertion-ordered list of Legs, plus the two auxiliary GID-hex indices
// used to reconcile HuntGroup fragments that arrive before their FullCdr.
//
// A single coarse-grained RWMutex guards a plain map, safe for a host that
// multiplexes independent core instances even though a single instance's
// own use of it is always serialized.
type Cache struct {
	mu   sync.RWMutex
	legs map[string][]*Leg

	// gidHexToThread and gidHexToFullGid implement first-seen-wins
	// auxiliary indices, keyed by the substring after the GID's final
	// colon (see internal/gid.HexSuffix).
	gidHexToThread  map[string]string
	gidHexToFullGid map[string]string
}

func NewCache() *Cache {
	return &Cache{
		legs:            make(map[string][]*Leg),
		gidHexToThread:  make(map[string]string),
		gidHexToFullGid: make(map[string]string),
	}
}

// Store appends leg to key's list, preserving insertion order.
func (c *Cache) Store(key string, l *Leg) {
	if key == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.legs[key] = append(c.legs[key], l)
}

// Get returns key's legs sorted by (in_leg_connect_time, source_line), per
// the stable within-group leg order. The returned slice is a copy; callers may reorder it
// freely.
func (c *Cache) Get(key string) []*Leg {
	c.mu.RLock()
	defer c.mu.RUnlock()
	src := c.legs[key]
	out := make([]*Leg, len(src))
	copy(out, src)
	sort.SliceStable(out, func(i, j int) bool { return Less(out[i], out[j]) })
	return out
}

// Peek returns key's legs without sorting or copying protection concerns
// beyond a shallow copy — used by callers that only need to test existence
// or count without paying the sort cost.
func (c *Cache) Peek(key string) []*Leg {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Leg, len(c.legs[key]))
	copy(out, c.legs[key])
	return out
}

// RemoveOne deletes legs matching inLegConnectTime under key, dropping the
// key entirely if it becomes empty.
func (c *Cache) RemoveOne(key string, inLegConnectTime string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	src := c.legs[key]
	kept := src[:0:0]
	for _, l := range src {
		if l.InLegConnectTime != inLegConnectTime {
			kept = append(kept, l)
		}
	}
	if len(kept) == 0 {
		delete(c.legs, key)
		return
	}
	c.legs[key] = kept
}

// RemoveGroup drops key and all its legs.
func (c *Cache) RemoveGroup(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.legs, key)
}

// Keys snapshots all cache keys.
func (c *Cache) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.legs))
	for k := range c.legs {
		out = append(out, k)
	}
	return out
}

// Count returns the total number of legs across all keys.
func (c *Cache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, v := range c.legs {
		n += len(v)
	}
	return n
}

// GroupCount returns the number of distinct keys currently cached.
func (c *Cache) GroupCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.legs)
}

// EarliestConnectTime returns the smallest in_leg_connect_time among key's
// legs, used to order groups for eviction/final emission.
func (c *Cache) EarliestConnectTime(key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var earliest string
	for _, l := range c.legs[key] {
		if earliest == "" || (l.InLegConnectTime != "" && l.InLegConnectTime < earliest) {
			earliest = l.InLegConnectTime
		}
	}
	return earliest
}

// --- GID-hex indices (first-seen wins) ---

func (c *Cache) LinkGidHexToThread(gidHex, threadID string) {
	if gidHex == "" || threadID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.gidHexToThread[gidHex]; !ok {
		c.gidHexToThread[gidHex] = threadID
	}
}

func (c *Cache) ThreadForGidHex(gidHex string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.gidHexToThread[gidHex]
	return t, ok
}

func (c *Cache) LinkGidHexToFullGid(gidHex, fullGid string) {
	if gidHex == "" || fullGid == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.gidHexToFullGid[gidHex]; !ok {
		c.gidHexToFullGid[gidHex] = fullGid
	}
}

func (c *Cache) FullGidForHex(gidHex string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	g, ok := c.gidHexToFullGid[gidHex]
	return g, ok
}
