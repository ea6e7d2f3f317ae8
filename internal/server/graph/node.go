package graph

import (
	"encoding/json"
	"time"
)

// Node is a stored memory unit. Tags is never nil on nodes returned by a
// repository, so it always encodes as a JSON array.
type Node struct {
	ID           string    `json:"id"`
	Content      string    `json:"content"`
	Tags         []string  `json:"tags"`
	Links        LinkSet   `json:"links"`
	Source       string    `json:"source"`
	CreatedAt    time.Time `json:"created_at"`
	LastAccessed time.Time `json:"last_accessed"`
	AccessCount  int64     `json:"access_count"`
}

// Patch replaces individual node fields. Nil fields are left unchanged.
type Patch struct {
	Content *string
	Tags    *[]string
	Links   *LinkSet
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Content == nil && p.Tags == nil && p.Links == nil
}

// LinkSet is the ordered, duplicate-free list of neighbor ids owned by one
// node. The zero value is an empty set.
type LinkSet struct {
	ids []string
}

// NewLinkSet builds a set from ids, keeping the first occurrence of each.
func NewLinkSet(ids ...string) LinkSet {
	var s LinkSet
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add appends id if it is not already present.
func (s *LinkSet) Add(id string) bool {
	if s.Contains(id) {
		return false
	}
	s.ids = append(s.ids[:len(s.ids):len(s.ids)], id)
	return true
}

// Remove drops id if present.
func (s *LinkSet) Remove(id string) bool {
	for i, existing := range s.ids {
		if existing == id {
			s.ids = append(s.ids[:i:i], s.ids[i+1:]...)
			return true
		}
	}
	return false
}

func (s LinkSet) Contains(id string) bool {
	for _, existing := range s.ids {
		if existing == id {
			return true
		}
	}
	return false
}

func (s LinkSet) Len() int {
	return len(s.ids)
}

// IDs returns a copy of the ids in order.
func (s LinkSet) IDs() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// Difference returns the ids of s that are not in other, in s order.
func (s LinkSet) Difference(other LinkSet) []string {
	var out []string
	for _, id := range s.ids {
		if !other.Contains(id) {
			out = append(out, id)
		}
	}
	return out
}

func (s LinkSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.IDs())
}

func (s *LinkSet) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewLinkSet(ids...)
	return nil
}
