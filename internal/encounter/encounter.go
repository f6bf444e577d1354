// Package encounter turns raw OCR text into battle signals and encounter records.
package encounter

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/GriffinCanCode/encounter-tracker/internal/species"
)

// Phase is the kind of battle on screen.
type Phase string

const (
	PhaseSingle Phase = "single"
	PhaseHorde  Phase = "horde"
)

// Record is one parsed encounter. SpeciesID is never 0 for records returned by Extract.
type Record struct {
	Timestamp time.Time `json:"timestamp"`
	SpeciesID int       `json:"species_id"`
	Level     *int      `json:"level,omitempty"`
	Shiny     bool      `json:"shiny"`
	Alpha     bool      `json:"alpha"`
	HuntID    int64     `json:"hunt_id"`
}

var (
	battleStartRe = regexp.MustCompile(`^a wild .+ appeared`)

	// qualifiers in any order, then an optional "mr." prefix, the species token,
	// an optional "jr." suffix, then "lv" followed by whitespace or digits
	encounterRe = regexp.MustCompile(`((?:(?:shiny|alpha)\s+)*(?:mr\.?\s+)?\S*(?:\s+jr\.?)?)\s+lv\.?(\s+[0-9]*|[0-9]+)`)

	shinyRe = regexp.MustCompile(`shiny\s*`)
	alphaRe = regexp.MustCompile(`alpha\s*`)
)

// IsBattleStart reports whether text opens with "a wild ... appeared".
func IsBattleStart(text string) bool {
	return battleStartRe.MatchString(strings.ToLower(strings.TrimSpace(text)))
}

// ClassifyBattleType returns PhaseHorde when "horde" appears anywhere in text.
func ClassifyBattleType(text string) Phase {
	if strings.Contains(strings.ToLower(text), "horde") {
		return PhaseHorde
	}
	return PhaseSingle
}

// Resolver maps a cleaned species name to an id, 0 when unresolved.
type Resolver interface {
	Resolve(name string, cutoff float64) int
}

// Extractor parses encounter lines against a species dictionary.
type Extractor struct {
	names  Resolver
	cutoff float64
	now    func() time.Time
}

// NewExtractor creates an extractor. A non-positive cutoff uses species.DefaultCutoff.
func NewExtractor(names Resolver, cutoff float64) *Extractor {
	if cutoff <= 0 {
		cutoff = species.DefaultCutoff
	}
	return &Extractor{names: names, cutoff: cutoff, now: time.Now}
}

// Extract returns every resolvable encounter in text. Unresolved names are dropped.
// HuntID is left zero for the caller to fill.
func (e *Extractor) Extract(text string) []Record {
	var records []Record
	for _, m := range encounterRe.FindAllStringSubmatch(strings.ToLower(text), -1) {
		rec, ok := e.parse(m[1], m[2])
		if ok {
			records = append(records, rec)
		}
	}
	return records
}

func (e *Extractor) parse(name, level string) (Record, bool) {
	rec := Record{}
	if strings.Contains(name, "shiny") {
		rec.Shiny = true
		name = shinyRe.ReplaceAllString(name, "")
	}
	if strings.Contains(name, "alpha") {
		rec.Alpha = true
		name = alphaRe.ReplaceAllString(name, "")
	}

	rec.SpeciesID = e.names.Resolve(strings.TrimSpace(name), e.cutoff)
	if rec.SpeciesID == 0 {
		return Record{}, false
	}
	if lvl, err := strconv.Atoi(strings.TrimSpace(level)); err == nil {
		rec.Level = &lvl
	}
	rec.Timestamp = e.now()
	return rec, true
}
