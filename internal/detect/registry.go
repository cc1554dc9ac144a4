package detect

import (
	"sort"
	"sync"

	"dirigent/internal/types"
)

// =============================================================================
// LAYER REGISTRY
// =============================================================================

// LayerRegistry maps layer tags to indicator keywords.
type LayerRegistry struct {
	mu      sync.RWMutex
	entries map[types.LayerTag][]string
}

// NewLayerRegistry returns a registry seeded with the default tables.
func NewLayerRegistry() *LayerRegistry {
	entries := make(map[types.LayerTag][]string, len(defaultLayerKeywords))
	for tag, kws := range defaultLayerKeywords {
		entries[tag] = append([]string(nil), kws...)
	}
	return &LayerRegistry{entries: entries}
}

// AddKeywords appends custom keywords for a layer. Append-only; existing
// keywords are never removed.
func (r *LayerRegistry) AddKeywords(tag types.LayerTag, keywords ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[tag] = append(r.entries[tag], keywords...)
}

// snapshot returns tags in deterministic order with their keyword lists.
func (r *LayerRegistry) snapshot() ([]types.LayerTag, map[types.LayerTag][]string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tags := make([]types.LayerTag, 0, len(r.entries))
	entries := make(map[types.LayerTag][]string, len(r.entries))
	for tag, kws := range r.entries {
		tags = append(tags, tag)
		entries[tag] = kws
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags, entries
}

// =============================================================================
// TOPIC REGISTRY
// =============================================================================

// TopicRegistry maps topic names to indicator keywords.
type TopicRegistry struct {
	mu      sync.RWMutex
	entries map[string][]string
}

// NewTopicRegistry returns a registry seeded with the default tables.
func NewTopicRegistry() *TopicRegistry {
	entries := make(map[string][]string, len(defaultTopicKeywords))
	for topic, kws := range defaultTopicKeywords {
		entries[topic] = append([]string(nil), kws...)
	}
	return &TopicRegistry{entries: entries}
}

// AddKeywords appends custom keywords for a topic, creating the topic if
// it does not exist yet.
func (r *TopicRegistry) AddKeywords(topic string, keywords ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[topic] = append(r.entries[topic], keywords...)
}

func (r *TopicRegistry) snapshot() ([]string, map[string][]string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	topics := make([]string, 0, len(r.entries))
	entries := make(map[string][]string, len(r.entries))
	for topic, kws := range r.entries {
		topics = append(topics, topic)
		entries[topic] = kws
	}
	sort.Strings(topics)
	return topics, entries
}

// =============================================================================
// TECHNOLOGY REGISTRY
// =============================================================================

// TechEntry describes one detectable technology. Aliases are exact names
// the technology goes by; supporting keywords are weaker signals that
// raise confidence when they co-occur.
type TechEntry struct {
	Name       string
	Category   types.TechCategory
	Aliases    []string
	Supporting []string
}

// TechRegistry holds the technology table.
type TechRegistry struct {
	mu      sync.RWMutex
	entries []TechEntry
}

// NewTechRegistry returns a registry seeded with the default tables.
func NewTechRegistry() *TechRegistry {
	entries := make([]TechEntry, len(defaultTechEntries))
	copy(entries, defaultTechEntries)
	return &TechRegistry{entries: entries}
}

// AddEntry appends a custom technology entry.
func (r *TechRegistry) AddEntry(entry TechEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

// AddSupporting appends supporting keywords to an existing technology.
func (r *TechRegistry) AddSupporting(name string, keywords ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.entries {
		if r.entries[i].Name == name {
			r.entries[i].Supporting = append(r.entries[i].Supporting, keywords...)
			return
		}
	}
}

func (r *TechRegistry) snapshot() []TechEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := make([]TechEntry, len(r.entries))
	copy(entries, r.entries)
	return entries
}
