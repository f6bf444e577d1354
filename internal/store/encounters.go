package store

import (
	"context"
	"database/sql"
	"time"

	apperrors "github.com/GriffinCanCode/encounter-tracker/internal/errors"
	"github.com/GriffinCanCode/encounter-tracker/internal/encounter"
	"github.com/GriffinCanCode/encounter-tracker/internal/trace"
)

// AggregateLimit caps the Recent and Top lists.
const AggregateLimit = 5

// SpeciesCount tallies one species within a hunt.
type SpeciesCount struct {
	SpeciesID int       `json:"species_id"`
	Name      string    `json:"name"`
	Count     int       `json:"count"`
	Alpha     int       `json:"alpha"`
	Shiny     int       `json:"shiny"`
	LastSeen  time.Time `json:"last_seen"`
}

// Aggregates is what the presentation layer shows for a hunt.
type Aggregates struct {
	Recent []SpeciesCount `json:"recent"`
	Top    []SpeciesCount `json:"top"`
	Total  int            `json:"total"`
}

// ManualEncounter is a user-entered count.
type ManualEncounter struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	SpeciesID int       `json:"species_id"`
	Qty       int       `json:"qty"`
	Shiny     bool      `json:"shiny"`
	Alpha     bool      `json:"alpha"`
	HuntID    int64     `json:"hunt_id"`
}

// InsertEncounters writes a batch in one transaction. Records with species
// id 0 are dropped; every record must carry a hunt id that exists.
func (s *Store) InsertEncounters(ctx context.Context, records []encounter.Record) error {
	batch := make([]encounter.Record, 0, len(records))
	hunts := map[int64]bool{}
	for _, r := range records {
		if r.SpeciesID == 0 {
			continue
		}
		if r.HuntID <= 0 {
			return apperrors.New(apperrors.CodeInvalidArgument, "encounter without hunt id")
		}
		batch = append(batch, r)
		hunts[r.HuntID] = true
	}
	if dropped := len(records) - len(batch); dropped > 0 {
		trace.Logger(ctx).Warn("dropping unresolved encounters", "count", dropped)
	}
	if len(batch) == 0 {
		return nil
	}

	const q = `INSERT INTO encounters (seen_at, species_id, level, shiny, alpha, hunt_id) VALUES ($1, $2, $3, $4, $5, $6)`
	if s.dryRun {
		for _, r := range batch {
			trace.Logger(ctx).Info("dry run, encounter not written", "query", q, "species_id", r.SpeciesID, "level", levelArg(r.Level), "shiny", r.Shiny, "alpha", r.Alpha, "hunt_id", r.HuntID)
		}
		return nil
	}

	return s.write(ctx, "insert encounters", func(ctx context.Context, tx *sql.Tx) error {
		for id := range hunts {
			if _, err := huntProfile(ctx, tx, id); err != nil {
				return err
			}
		}

		stmt, err := tx.PrepareContext(ctx, q)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, r := range batch {
			s.logStatement(ctx, "insert encounters", q, r.Timestamp, r.SpeciesID, levelArg(r.Level), r.Shiny, r.Alpha, r.HuntID)
			if _, err := stmt.ExecContext(ctx, r.Timestamp.UTC(), r.SpeciesID, levelArg(r.Level), r.Shiny, r.Alpha, r.HuntID); err != nil {
				return err
			}
		}
		return nil
	})
}

func levelArg(level *int) sql.NullInt64 {
	if level == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*level), Valid: true}
}

// Aggregates returns the Recent and Top lists and the total for a hunt.
// A failed read is logged and yields an empty result.
func (s *Store) Aggregates(ctx context.Context, huntID int64) Aggregates {
	agg, err := read(ctx, s, "aggregates", func(ctx context.Context) (Aggregates, error) {
		recent, err := s.speciesCounts(ctx, huntID, "last_seen DESC, e.species_id")
		if err != nil {
			return Aggregates{}, err
		}
		top, err := s.speciesCounts(ctx, huntID, "qty DESC, e.species_id")
		if err != nil {
			return Aggregates{}, err
		}
		var total int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM encounters WHERE hunt_id = $1`, huntID).Scan(&total); err != nil {
			return Aggregates{}, err
		}
		return Aggregates{Recent: recent, Top: top, Total: total}, nil
	})
	if err != nil {
		trace.Logger(ctx).Error("aggregates unavailable", "hunt_id", huntID, "error", err)
		return Aggregates{Recent: []SpeciesCount{}, Top: []SpeciesCount{}}
	}
	return agg
}

// orderBy is one of two constants above, never user input.
func (s *Store) speciesCounts(ctx context.Context, huntID int64, orderBy string) ([]SpeciesCount, error) {
	q := `
		SELECT e.species_id,
		       COALESCE(n.name, ''),
		       COUNT(*) AS qty,
		       COUNT(*) FILTER (WHERE e.alpha),
		       COUNT(*) FILTER (WHERE e.shiny),
		       MAX(e.seen_at) AS last_seen
		FROM encounters e
		LEFT JOIN species_names n ON n.species_id = e.species_id
		WHERE e.hunt_id = $1
		GROUP BY e.species_id, n.name
		ORDER BY ` + orderBy + `
		LIMIT $2`
	s.logStatement(ctx, "aggregates", q, huntID, AggregateLimit)

	rows, err := s.db.QueryContext(ctx, q, huntID, AggregateLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []SpeciesCount{}
	for rows.Next() {
		var c SpeciesCount
		if err := rows.Scan(&c.SpeciesID, &c.Name, &c.Count, &c.Alpha, &c.Shiny, &c.LastSeen); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// AddManualEncounter records a user-entered count for a hunt.
func (s *Store) AddManualEncounter(ctx context.Context, m ManualEncounter) (ManualEncounter, error) {
	if m.SpeciesID <= 0 {
		return ManualEncounter{}, apperrors.Newf(apperrors.CodeInvalidArgument, "invalid species id %d", m.SpeciesID)
	}
	if m.Qty <= 0 {
		return ManualEncounter{}, apperrors.Newf(apperrors.CodeInvalidArgument, "quantity must be positive, got %d", m.Qty)
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = s.now()
	}

	const q = `INSERT INTO manual_encounters (seen_at, species_id, qty, shiny, alpha, hunt_id) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	if s.dryRun {
		trace.Logger(ctx).Info("dry run, manual encounter not written", "query", q, "species_id", m.SpeciesID, "qty", m.Qty, "hunt_id", m.HuntID)
		return m, nil
	}

	err := s.write(ctx, "add manual encounter", func(ctx context.Context, tx *sql.Tx) error {
		if _, err := huntProfile(ctx, tx, m.HuntID); err != nil {
			return err
		}
		s.logStatement(ctx, "add manual encounter", q, m.Timestamp, m.SpeciesID, m.Qty, m.Shiny, m.Alpha, m.HuntID)
		id, err := insertID(ctx, tx, q, m.Timestamp.UTC(), m.SpeciesID, m.Qty, m.Shiny, m.Alpha, m.HuntID)
		m.ID = id
		return err
	})
	return m, err
}

// ManualEncounters lists a hunt's manual entries, oldest first.
func (s *Store) ManualEncounters(ctx context.Context, huntID int64) ([]ManualEncounter, error) {
	return read(ctx, s, "list manual encounters", func(ctx context.Context) ([]ManualEncounter, error) {
		const q = `SELECT id, seen_at, species_id, qty, shiny, alpha, hunt_id FROM manual_encounters WHERE hunt_id = $1 ORDER BY seen_at, id`
		s.logStatement(ctx, "list manual encounters", q, huntID)
		rows, err := s.db.QueryContext(ctx, q, huntID)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		out := []ManualEncounter{}
		for rows.Next() {
			var m ManualEncounter
			if err := rows.Scan(&m.ID, &m.Timestamp, &m.SpeciesID, &m.Qty, &m.Shiny, &m.Alpha, &m.HuntID); err != nil {
				return nil, err
			}
			out = append(out, m)
		}
		return out, rows.Err()
	})
}
