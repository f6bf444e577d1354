package store

import (
	"context"
	"database/sql"
	"errors"

	apperrors "github.com/GriffinCanCode/encounter-tracker/internal/errors"
)

// Profile groups hunts.
type Profile struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Hunt is a named encounter tally inside a profile.
type Hunt struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ProfileID int64  `json:"profile_id"`
}

// --- Profile operations ---

// ListProfiles returns all profiles ordered by id.
func (s *Store) ListProfiles(ctx context.Context) ([]Profile, error) {
	return read(ctx, s, "list profiles", func(ctx context.Context) ([]Profile, error) {
		const q = `SELECT id, name FROM profiles ORDER BY id`
		s.logStatement(ctx, "list profiles", q)
		rows, err := s.db.QueryContext(ctx, q)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		out := []Profile{}
		for rows.Next() {
			var p Profile
			if err := rows.Scan(&p.ID, &p.Name); err != nil {
				return nil, err
			}
			out = append(out, p)
		}
		return out, rows.Err()
	})
}

// CreateProfile adds a profile together with its default hunt.
func (s *Store) CreateProfile(ctx context.Context, name string) (Profile, error) {
	name, err := cleanName("profile", name)
	if err != nil {
		return Profile{}, err
	}

	var p Profile
	err = s.write(ctx, "create profile", func(ctx context.Context, tx *sql.Tx) error {
		if err := profileNameFree(ctx, tx, name, 0); err != nil {
			return err
		}
		id, err := s.insertProfile(ctx, tx, name)
		if err != nil {
			return err
		}
		p = Profile{ID: id, Name: name}
		return nil
	})
	return p, err
}

// RenameProfile changes a profile's name.
func (s *Store) RenameProfile(ctx context.Context, id int64, name string) error {
	name, err := cleanName("profile", name)
	if err != nil {
		return err
	}

	return s.write(ctx, "rename profile", func(ctx context.Context, tx *sql.Tx) error {
		if err := profileExists(ctx, tx, id); err != nil {
			return err
		}
		if err := profileNameFree(ctx, tx, name, id); err != nil {
			return err
		}
		const q = `UPDATE profiles SET name = $1 WHERE id = $2`
		s.logStatement(ctx, "rename profile", q, name, id)
		_, err := tx.ExecContext(ctx, q, name, id)
		return err
	})
}

// DeleteProfile removes a profile with its hunts and their encounters.
// The last remaining profile cannot be deleted.
func (s *Store) DeleteProfile(ctx context.Context, id int64) error {
	return s.write(ctx, "delete profile", func(ctx context.Context, tx *sql.Tx) error {
		if err := profileExists(ctx, tx, id); err != nil {
			return err
		}
		var n int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&n); err != nil {
			return err
		}
		if n <= 1 {
			return apperrors.New(apperrors.CodeLastEntity, "cannot delete the last profile")
		}

		for _, q := range []string{
			`DELETE FROM encounters WHERE hunt_id IN (SELECT id FROM hunts WHERE profile_id = $1)`,
			`DELETE FROM manual_encounters WHERE hunt_id IN (SELECT id FROM hunts WHERE profile_id = $1)`,
			`DELETE FROM hunts WHERE profile_id = $1`,
			`DELETE FROM profiles WHERE id = $1`,
		} {
			s.logStatement(ctx, "delete profile", q, id)
			if _, err := tx.ExecContext(ctx, q, id); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) insertProfile(ctx context.Context, tx *sql.Tx, name string) (int64, error) {
	const q = `INSERT INTO profiles (name) VALUES ($1) RETURNING id`
	s.logStatement(ctx, "insert profile", q, name)
	id, err := insertID(ctx, tx, q, name)
	if err != nil {
		return 0, err
	}
	if _, err := s.insertHunt(ctx, tx, id, DefaultHuntName); err != nil {
		return 0, err
	}
	return id, nil
}

func profileExists(ctx context.Context, tx *sql.Tx, id int64) error {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM profiles WHERE id = $1`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.Newf(apperrors.CodeNotFound, "profile %d not found", id)
	}
	return err
}

func profileNameFree(ctx context.Context, tx *sql.Tx, name string, self int64) error {
	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles WHERE name = $1 AND id <> $2`, name, self).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return apperrors.Newf(apperrors.CodeConflict, "profile %q already exists", name)
	}
	return nil
}

// --- Hunt operations ---

// ListHunts returns the hunts of a profile ordered by id.
func (s *Store) ListHunts(ctx context.Context, profileID int64) ([]Hunt, error) {
	return read(ctx, s, "list hunts", func(ctx context.Context) ([]Hunt, error) {
		var one int
		err := s.db.QueryRowContext(ctx, `SELECT 1 FROM profiles WHERE id = $1`, profileID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.Newf(apperrors.CodeNotFound, "profile %d not found", profileID)
		}
		if err != nil {
			return nil, err
		}

		const q = `SELECT id, name, profile_id FROM hunts WHERE profile_id = $1 ORDER BY id`
		s.logStatement(ctx, "list hunts", q, profileID)
		return s.scanHunts(ctx, q, profileID)
	})
}

// GetHunt looks a hunt up by id.
func (s *Store) GetHunt(ctx context.Context, id int64) (Hunt, error) {
	return read(ctx, s, "get hunt", func(ctx context.Context) (Hunt, error) {
		var h Hunt
		err := s.db.QueryRowContext(ctx, `SELECT id, name, profile_id FROM hunts WHERE id = $1`, id).
			Scan(&h.ID, &h.Name, &h.ProfileID)
		if errors.Is(err, sql.ErrNoRows) {
			return Hunt{}, apperrors.Newf(apperrors.CodeNotFound, "hunt %d not found", id)
		}
		return h, err
	})
}

// FirstHunt returns the first hunt of the first profile.
func (s *Store) FirstHunt(ctx context.Context) (Hunt, error) {
	return read(ctx, s, "first hunt", func(ctx context.Context) (Hunt, error) {
		hunts, err := s.scanHunts(ctx, `SELECT id, name, profile_id FROM hunts ORDER BY profile_id, id LIMIT 1`)
		if err != nil {
			return Hunt{}, err
		}
		if len(hunts) == 0 {
			return Hunt{}, apperrors.New(apperrors.CodeNotFound, "no hunts")
		}
		return hunts[0], nil
	})
}

// CreateHunt adds a hunt to a profile.
func (s *Store) CreateHunt(ctx context.Context, profileID int64, name string) (Hunt, error) {
	name, err := cleanName("hunt", name)
	if err != nil {
		return Hunt{}, err
	}

	var h Hunt
	err = s.write(ctx, "create hunt", func(ctx context.Context, tx *sql.Tx) error {
		if err := profileExists(ctx, tx, profileID); err != nil {
			return err
		}
		if err := huntNameFree(ctx, tx, profileID, name, 0); err != nil {
			return err
		}
		id, err := s.insertHunt(ctx, tx, profileID, name)
		if err != nil {
			return err
		}
		h = Hunt{ID: id, Name: name, ProfileID: profileID}
		return nil
	})
	return h, err
}

// RenameHunt changes a hunt's name; names are unique per profile.
func (s *Store) RenameHunt(ctx context.Context, id int64, name string) error {
	name, err := cleanName("hunt", name)
	if err != nil {
		return err
	}

	return s.write(ctx, "rename hunt", func(ctx context.Context, tx *sql.Tx) error {
		profileID, err := huntProfile(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := huntNameFree(ctx, tx, profileID, name, id); err != nil {
			return err
		}
		const q = `UPDATE hunts SET name = $1 WHERE id = $2`
		s.logStatement(ctx, "rename hunt", q, name, id)
		_, err = tx.ExecContext(ctx, q, name, id)
		return err
	})
}

// DeleteHunt removes a hunt and its encounters. A profile's last hunt
// cannot be deleted.
func (s *Store) DeleteHunt(ctx context.Context, id int64) error {
	return s.write(ctx, "delete hunt", func(ctx context.Context, tx *sql.Tx) error {
		profileID, err := huntProfile(ctx, tx, id)
		if err != nil {
			return err
		}
		var n int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM hunts WHERE profile_id = $1`, profileID).Scan(&n); err != nil {
			return err
		}
		if n <= 1 {
			return apperrors.Newf(apperrors.CodeLastEntity, "cannot delete the last hunt of profile %d", profileID)
		}

		for _, q := range []string{
			`DELETE FROM encounters WHERE hunt_id = $1`,
			`DELETE FROM manual_encounters WHERE hunt_id = $1`,
			`DELETE FROM hunts WHERE id = $1`,
		} {
			s.logStatement(ctx, "delete hunt", q, id)
			if _, err := tx.ExecContext(ctx, q, id); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) insertHunt(ctx context.Context, tx *sql.Tx, profileID int64, name string) (int64, error) {
	const q = `INSERT INTO hunts (name, profile_id) VALUES ($1, $2) RETURNING id`
	s.logStatement(ctx, "insert hunt", q, name, profileID)
	return insertID(ctx, tx, q, name, profileID)
}

func (s *Store) scanHunts(ctx context.Context, query string, args ...any) ([]Hunt, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Hunt{}
	for rows.Next() {
		var h Hunt
		if err := rows.Scan(&h.ID, &h.Name, &h.ProfileID); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func huntProfile(ctx context.Context, tx *sql.Tx, id int64) (int64, error) {
	var profileID int64
	err := tx.QueryRowContext(ctx, `SELECT profile_id FROM hunts WHERE id = $1`, id).Scan(&profileID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, apperrors.Newf(apperrors.CodeNotFound, "hunt %d not found", id)
	}
	return profileID, err
}

func huntNameFree(ctx context.Context, tx *sql.Tx, profileID int64, name string, self int64) error {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM hunts WHERE profile_id = $1 AND name = $2 AND id <> $3`,
		profileID, name, self).Scan(&n)
	if err != nil {
		return err
	}
	if n > 0 {
		return apperrors.Newf(apperrors.CodeConflict, "hunt %q already exists", name)
	}
	return nil
}
