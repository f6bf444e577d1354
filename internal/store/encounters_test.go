package store

import (
	"context"
	"testing"
	"time"

	apperrors "github.com/GriffinCanCode/encounter-tracker/internal/errors"
	"github.com/GriffinCanCode/encounter-tracker/internal/encounter"
)

func lvl(n int) *int { return &n }

func countEncounters(t *testing.T, s *Store) int {
	t.Helper()
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM encounters`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	return n
}

func TestInsertEncountersBatch(t *testing.T) {
	s := openTestStore(t)
	h := defaultHunt(t, s)
	now := time.Now()

	records := []encounter.Record{
		{Timestamp: now, SpeciesID: 41, Level: lvl(12), HuntID: h.ID},
		{Timestamp: now, SpeciesID: 41, Shiny: true, HuntID: h.ID},
		{Timestamp: now, SpeciesID: 0, HuntID: h.ID},
	}
	if err := s.InsertEncounters(context.Background(), records); err != nil {
		t.Fatalf("InsertEncounters() error = %v", err)
	}

	if n := countEncounters(t, s); n != 2 {
		t.Errorf("rows = %d, want 2 (zero id dropped)", n)
	}

	var nullLevels int
	s.db.QueryRow(`SELECT COUNT(*) FROM encounters WHERE level IS NULL`).Scan(&nullLevels)
	if nullLevels != 1 {
		t.Errorf("NULL levels = %d, want 1", nullLevels)
	}
}

func TestInsertEncountersValidatesHunt(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.InsertEncounters(ctx, []encounter.Record{{Timestamp: time.Now(), SpeciesID: 41}})
	if !apperrors.IsCode(err, apperrors.CodeInvalidArgument) {
		t.Errorf("missing hunt id error = %v, want INVALID_ARGUMENT", err)
	}

	err = s.InsertEncounters(ctx, []encounter.Record{{Timestamp: time.Now(), SpeciesID: 41, HuntID: 999}})
	if !apperrors.IsCode(err, apperrors.CodeNotFound) {
		t.Errorf("unknown hunt error = %v, want NOT_FOUND", err)
	}
	if n := countEncounters(t, s); n != 0 {
		t.Errorf("rows = %d, want 0", n)
	}
}

func TestInsertEncountersDryRun(t *testing.T) {
	s := openTestStoreWith(t, Options{DryRun: true, LogQueries: true})
	h := defaultHunt(t, s)

	err := s.InsertEncounters(context.Background(), []encounter.Record{{Timestamp: time.Now(), SpeciesID: 41, HuntID: h.ID}})
	if err != nil {
		t.Fatalf("InsertEncounters() error = %v", err)
	}
	if n := countEncounters(t, s); n != 0 {
		t.Errorf("dry run wrote %d rows", n)
	}
}

func TestInsertEncountersExhaustsRetries(t *testing.T) {
	s := openTestStore(t)
	h := defaultHunt(t, s)
	s.db.Close()

	err := s.InsertEncounters(context.Background(), []encounter.Record{{Timestamp: time.Now(), SpeciesID: 41, HuntID: h.ID}})
	if !apperrors.IsCode(err, apperrors.CodePersistence) {
		t.Errorf("InsertEncounters() error = %v, want PERSISTENCE_FAILURE", err)
	}
}

func TestAggregates(t *testing.T) {
	s := openTestStore(t)
	h := defaultHunt(t, s)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	var records []encounter.Record
	add := func(offset time.Duration, id int, shiny, alpha bool) {
		records = append(records, encounter.Record{Timestamp: base.Add(offset), SpeciesID: id, Shiny: shiny, Alpha: alpha, HuntID: h.ID})
	}
	// zubat most common, geodude seen last
	for i := range 5 {
		add(time.Duration(i)*time.Minute, 41, i == 0, i < 2)
	}
	add(10*time.Minute, 25, false, false)
	add(20*time.Minute, 74, false, true)
	add(21*time.Minute, 74, false, false)
	// species without a dictionary name still aggregates
	add(30*time.Second, 999, false, false)

	ctx := context.Background()
	if err := s.InsertEncounters(ctx, records); err != nil {
		t.Fatal(err)
	}

	agg := s.Aggregates(ctx, h.ID)

	if agg.Total != 9 {
		t.Errorf("Total = %d, want 9", agg.Total)
	}

	wantRecent := []int{74, 25, 41, 999}
	if len(agg.Recent) != len(wantRecent) {
		t.Fatalf("Recent = %+v", agg.Recent)
	}
	for i, id := range wantRecent {
		if agg.Recent[i].SpeciesID != id {
			t.Errorf("Recent[%d] = %d, want %d", i, agg.Recent[i].SpeciesID, id)
		}
	}

	top := agg.Top[0]
	if top.SpeciesID != 41 || top.Name != "zubat" || top.Count != 5 || top.Alpha != 2 || top.Shiny != 1 {
		t.Errorf("Top[0] = %+v", top)
	}
	if agg.Top[1].SpeciesID != 74 || agg.Top[1].Count != 2 || agg.Top[1].Alpha != 1 {
		t.Errorf("Top[1] = %+v", agg.Top[1])
	}
	if !agg.Recent[0].LastSeen.Equal(base.Add(21 * time.Minute)) {
		t.Errorf("Recent[0].LastSeen = %v", agg.Recent[0].LastSeen)
	}
}

func TestAggregatesLimit(t *testing.T) {
	s := openTestStore(t)
	h := defaultHunt(t, s)

	var records []encounter.Record
	for id := 1; id <= 8; id++ {
		records = append(records, encounter.Record{Timestamp: time.Now(), SpeciesID: id, HuntID: h.ID})
	}
	s.InsertEncounters(context.Background(), records)

	agg := s.Aggregates(context.Background(), h.ID)
	if len(agg.Recent) != AggregateLimit || len(agg.Top) != AggregateLimit || agg.Total != 8 {
		t.Errorf("recent=%d top=%d total=%d", len(agg.Recent), len(agg.Top), agg.Total)
	}
}

func TestAggregatesEmptyOnFailure(t *testing.T) {
	s := openTestStore(t)
	h := defaultHunt(t, s)
	s.db.Close()

	agg := s.Aggregates(context.Background(), h.ID)
	if agg.Total != 0 || len(agg.Recent) != 0 || len(agg.Top) != 0 || agg.Recent == nil {
		t.Errorf("Aggregates() = %+v, want empty", agg)
	}
}

func TestManualEncounters(t *testing.T) {
	s := openTestStore(t)
	h := defaultHunt(t, s)
	ctx := context.Background()
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	m, err := s.AddManualEncounter(ctx, ManualEncounter{SpeciesID: 25, Qty: 40, Shiny: true, HuntID: h.ID})
	if err != nil {
		t.Fatalf("AddManualEncounter() error = %v", err)
	}
	if m.ID == 0 {
		t.Error("ID not assigned")
	}

	tests := []struct {
		name string
		in   ManualEncounter
		want apperrors.Code
	}{
		{"zero qty", ManualEncounter{SpeciesID: 25, Qty: 0, HuntID: h.ID}, apperrors.CodeInvalidArgument},
		{"zero species", ManualEncounter{SpeciesID: 0, Qty: 1, HuntID: h.ID}, apperrors.CodeInvalidArgument},
		{"unknown hunt", ManualEncounter{SpeciesID: 25, Qty: 1, HuntID: 999}, apperrors.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.AddManualEncounter(ctx, tt.in); !apperrors.IsCode(err, tt.want) {
				t.Errorf("error = %v, want %s", err, tt.want)
			}
		})
	}

	list, err := s.ManualEncounters(ctx, h.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Qty != 40 || !list[0].Shiny || !list[0].Timestamp.Equal(fixed) {
		t.Errorf("ManualEncounters() = %+v", list)
	}
}
