package store

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	apperrors "github.com/GriffinCanCode/encounter-tracker/internal/errors"
)

// Scope selects which encounters an export covers.
type Scope string

const (
	ScopeHunt    Scope = "hunt"
	ScopeProfile Scope = "profile"
	ScopeAll     Scope = "all"
)

// ParseScope validates a scope name.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case ScopeHunt, ScopeProfile, ScopeAll:
		return Scope(s), nil
	}
	return "", apperrors.Newf(apperrors.CodeInvalidArgument, "scope must be hunt, profile or all, got %q", s)
}

var exportHeader = []string{
	"datetime", "pokedex_entry", "pokemon", "level", "shiny", "alpha",
	"hunt_id", "hunt_name", "profile_id", "profile_name",
}

const (
	exportTimeLayout = "2006-01-02 15:04:05"
	exportFileLayout = "2006_01_02__15_04_05"
)

type exportRow struct {
	seenAt      time.Time
	speciesID   int
	speciesName sql.NullString
	level       sql.NullInt64
	shiny       bool
	alpha       bool
	huntID      sql.NullInt64
	huntName    sql.NullString
	profileID   sql.NullInt64
	profileName sql.NullString
}

// Export writes the encounters in scope to a timestamped CSV file in the
// export directory and returns its path. id is ignored for ScopeAll.
func (s *Store) Export(ctx context.Context, scope Scope, id int64) (string, error) {
	var where, suffix string
	var args []any
	switch scope {
	case ScopeHunt:
		where, suffix, args = "e.hunt_id = $1", fmt.Sprintf("hunt_id_%d", id), []any{id}
	case ScopeProfile:
		where, suffix, args = "h.profile_id = $1", fmt.Sprintf("profile_id_%d", id), []any{id}
	case ScopeAll:
		where, suffix = "1 = 1", "all"
	default:
		return "", apperrors.Newf(apperrors.CodeInvalidArgument, "unknown export scope %q", scope)
	}

	rows, err := read(ctx, s, "export data", func(ctx context.Context) ([]exportRow, error) {
		if err := s.scopeExists(ctx, scope, id); err != nil {
			return nil, err
		}
		q := `
			SELECT e.seen_at, e.species_id, n.name, e.level, e.shiny, e.alpha,
			       h.id, h.name, h.profile_id, p.name
			FROM encounters e
			LEFT JOIN species_names n ON e.species_id = n.species_id
			LEFT JOIN hunts h ON e.hunt_id = h.id
			LEFT JOIN profiles p ON h.profile_id = p.id
			WHERE ` + where + `
			ORDER BY e.seen_at, e.id`
		s.logStatement(ctx, "export data", q, args...)
		return s.scanExport(ctx, q, args...)
	})
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.exportDir, 0o755); err != nil {
		return "", apperrors.Wrap(err, apperrors.CodePersistence, "create export dir")
	}
	path := filepath.Join(s.exportDir, fmt.Sprintf("%s__%s_data.csv", s.now().Format(exportFileLayout), suffix))
	if err := writeCSV(path, rows); err != nil {
		return "", apperrors.Wrapf(err, apperrors.CodePersistence, "write %s", path)
	}
	return path, nil
}

func (s *Store) scopeExists(ctx context.Context, scope Scope, id int64) error {
	var table string
	switch scope {
	case ScopeHunt:
		table = "hunts"
	case ScopeProfile:
		table = "profiles"
	default:
		return nil
	}
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM `+table+` WHERE id = $1`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.Newf(apperrors.CodeNotFound, "%s %d not found", scope, id)
	}
	return err
}

func (s *Store) scanExport(ctx context.Context, q string, args ...any) ([]exportRow, error) {
	rs, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rs.Close()

	var out []exportRow
	for rs.Next() {
		var r exportRow
		if err := rs.Scan(&r.seenAt, &r.speciesID, &r.speciesName, &r.level, &r.shiny, &r.alpha,
			&r.huntID, &r.huntName, &r.profileID, &r.profileName); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rs.Err()
}

func writeCSV(path string, rows []exportRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(exportHeader); err != nil {
		return err
	}
	for _, r := range rows {
		if err := w.Write(r.record()); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

// Timestamps are stored as UTC wall clock and exported in local time.
func (r exportRow) record() []string {
	return []string{
		r.seenAt.In(time.Local).Format(exportTimeLayout),
		strconv.Itoa(r.speciesID),
		r.speciesName.String,
		nullInt(r.level),
		boolDigit(r.shiny),
		boolDigit(r.alpha),
		nullInt(r.huntID),
		r.huntName.String,
		nullInt(r.profileID),
		r.profileName.String,
	}
}

func nullInt(v sql.NullInt64) string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatInt(v.Int64, 10)
}

func boolDigit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
