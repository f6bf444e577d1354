// Package species holds the name/id dictionary used to resolve OCR'd species names.
package species

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// DefaultCutoff is the minimum similarity for an approximate match.
const DefaultCutoff = 0.8

const scoreEpsilon = 1e-9

// Entry is one dictionary row.
type Entry struct {
	ID   int
	Name string
}

// Dictionary is an immutable bidirectional name/id table. Safe for concurrent reads.
type Dictionary struct {
	byID   map[int]string
	byName map[string]int
	names  []string
}

// New builds a dictionary. Names are trimmed and lowercased; when two ids share a
// name the lower id wins the reverse lookup.
func New(entries map[int]string) *Dictionary {
	d := &Dictionary{
		byID:   make(map[int]string, len(entries)),
		byName: make(map[string]int, len(entries)),
	}
	ids := make([]int, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		name := strings.ToLower(strings.TrimSpace(entries[id]))
		if id == 0 || name == "" {
			continue
		}
		d.byID[id] = name
		if _, dup := d.byName[name]; !dup {
			d.byName[name] = id
			d.names = append(d.names, name)
		}
	}
	slices.Sort(d.names)
	return d
}

// Load reads a JSON object of id strings to names, e.g. {"25": "pikachu"}.
func Load(path string) (*Dictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read species file %s: %w", path, err)
	}
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse species file %s: %w", path, err)
	}
	entries := make(map[int]string, len(raw))
	for k, v := range raw {
		id, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil {
			return nil, fmt.Errorf("species file %s: bad id %q: %w", path, k, err)
		}
		entries[id] = v
	}
	return New(entries), nil
}

// Len returns the number of ids.
func (d *Dictionary) Len() int { return len(d.byID) }

// Name returns the name for id.
func (d *Dictionary) Name(id int) (string, bool) {
	n, ok := d.byID[id]
	return n, ok
}

// ID returns the id for an exact (lowercase) name.
func (d *Dictionary) ID(name string) (int, bool) {
	id, ok := d.byName[name]
	return id, ok
}

// Entries lists all rows ordered by id.
func (d *Dictionary) Entries() []Entry {
	out := make([]Entry, 0, len(d.byID))
	for id, name := range d.byID {
		out = append(out, Entry{ID: id, Name: name})
	}
	slices.SortFunc(out, func(a, b Entry) int { return a.ID - b.ID })
	return out
}

// Resolve maps a cleaned name to an id: exact match first, then the single best
// approximate match scoring at least cutoff. A tie for best, or no candidate above
// the cutoff, yields 0.
func (d *Dictionary) Resolve(name string, cutoff float64) int {
	if name == "" {
		return 0
	}
	if id, ok := d.byName[name]; ok {
		return id
	}

	best, bestScore, tied := "", -1.0, false
	for _, candidate := range d.names {
		score := Similarity(name, candidate)
		switch {
		case math.Abs(score-bestScore) < scoreEpsilon:
			tied = true
		case score > bestScore:
			best, bestScore, tied = candidate, score, false
		}
	}
	if best == "" || tied || bestScore+scoreEpsilon < cutoff {
		return 0
	}
	return d.byName[best]
}

// Similarity is 1 - levenshtein(a,b)/max(len(a),len(b)) over runes.
func Similarity(a, b string) float64 {
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}
