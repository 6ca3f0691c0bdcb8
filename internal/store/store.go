// Package store persists cohorts, teams, story states and task unlocks in
// SQLite (libSQL). Story states are JSONB documents guarded by a version
// column so concurrent advances cannot silently overwrite each other.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/playperu/sprintstory/internal/database"
	"github.com/playperu/sprintstory/internal/sprint"
)

const timeLayout = "2006-01-02T15:04:05.000Z"

type Store struct {
	db  *sql.DB
	now func() time.Time
}

func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) nowUTC() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, v.String)
	if err != nil {
		return nil, fmt.Errorf("parsing time %q: %w", v.String, err)
	}
	return &t, nil
}

// Cohorts and teams

func (s *Store) CreateCohort(ctx context.Context, c sprint.Cohort) (sprint.Cohort, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cohorts (id, name, starts_at, ends_at, created_at) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.Name, formatTime(c.StartsAt), formatTime(c.EndsAt), s.nowUTC().Format(timeLayout),
	)
	if err != nil {
		return sprint.Cohort{}, fmt.Errorf("inserting cohort: %w", err)
	}
	return c, nil
}

func (s *Store) Cohort(ctx context.Context, id string) (sprint.Cohort, error) {
	var (
		c            sprint.Cohort
		starts, ends sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, starts_at, ends_at FROM cohorts WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &starts, &ends)
	if errors.Is(err, sql.ErrNoRows) {
		return sprint.Cohort{}, fmt.Errorf("cohort %q: %w", id, sprint.ErrNotFound)
	}
	if err != nil {
		return sprint.Cohort{}, fmt.Errorf("loading cohort: %w", err)
	}
	if c.StartsAt, err = parseTime(starts); err != nil {
		return sprint.Cohort{}, err
	}
	if c.EndsAt, err = parseTime(ends); err != nil {
		return sprint.Cohort{}, err
	}
	return c, nil
}

func (s *Store) ListCohorts(ctx context.Context) ([]sprint.Cohort, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, starts_at, ends_at FROM cohorts ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing cohorts: %w", err)
	}
	defer rows.Close()

	var out []sprint.Cohort
	for rows.Next() {
		var (
			c            sprint.Cohort
			starts, ends sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.Name, &starts, &ends); err != nil {
			return nil, err
		}
		if c.StartsAt, err = parseTime(starts); err != nil {
			return nil, err
		}
		if c.EndsAt, err = parseTime(ends); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CreateTeam inserts a team and its members in list order.
func (s *Store) CreateTeam(ctx context.Context, cohortID, name string, members []sprint.Member) (sprint.Team, error) {
	cohort, err := s.Cohort(ctx, cohortID)
	if err != nil {
		return sprint.Team{}, err
	}

	t := sprint.Team{
		ID:           uuid.NewString(),
		CohortID:     cohortID,
		Name:         name,
		CohortEndsAt: cohort.EndsAt,
	}
	err = database.InTx(ctx, s.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO teams (id, cohort_id, name, created_at) VALUES (?, ?, ?, ?)`,
			t.ID, cohortID, name, s.nowUTC().Format(timeLayout),
		)
		if err != nil {
			return fmt.Errorf("inserting team: %w", err)
		}
		for i, m := range members {
			if m.ID == "" {
				m.ID = uuid.NewString()
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO members (id, team_id, name, role, position) VALUES (?, ?, ?, ?, ?)`,
				m.ID, t.ID, m.Name, m.Role, i,
			)
			if err != nil {
				return fmt.Errorf("inserting member: %w", err)
			}
			t.Members = append(t.Members, m)
		}
		return nil
	})
	if err != nil {
		return sprint.Team{}, err
	}
	return t, nil
}

// Team loads a team with its ordered members and cohort end date.
func (s *Store) Team(ctx context.Context, id string) (sprint.Team, error) {
	var (
		t    sprint.Team
		ends sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT t.id, t.cohort_id, t.name, c.ends_at
		FROM teams t
		JOIN cohorts c ON c.id = t.cohort_id
		WHERE t.id = ?
	`, id).Scan(&t.ID, &t.CohortID, &t.Name, &ends)
	if errors.Is(err, sql.ErrNoRows) {
		return sprint.Team{}, fmt.Errorf("team %q: %w", id, sprint.ErrNotFound)
	}
	if err != nil {
		return sprint.Team{}, fmt.Errorf("loading team: %w", err)
	}
	if t.CohortEndsAt, err = parseTime(ends); err != nil {
		return sprint.Team{}, err
	}
	if t.Members, err = s.members(ctx, id); err != nil {
		return sprint.Team{}, err
	}
	return t, nil
}

func (s *Store) members(ctx context.Context, teamID string) ([]sprint.Member, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, role FROM members WHERE team_id = ? ORDER BY position`, teamID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}
	defer rows.Close()

	var out []sprint.Member
	for rows.Next() {
		var m sprint.Member
		if err := rows.Scan(&m.ID, &m.Name, &m.Role); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ListTeams returns a cohort's teams with members.
func (s *Store) ListTeams(ctx context.Context, cohortID string) ([]sprint.Team, error) {
	if _, err := s.Cohort(ctx, cohortID); err != nil {
		return nil, err
	}

	// Materialize ids first; SQLite can't have concurrent cursors.
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM teams WHERE cohort_id = ? ORDER BY created_at, id`, cohortID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing teams: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	teams := make([]sprint.Team, 0, len(ids))
	for _, id := range ids {
		t, err := s.Team(ctx, id)
		if err != nil {
			return nil, err
		}
		teams = append(teams, t)
	}
	return teams, nil
}

// Story state

func (s *Store) StoryState(ctx context.Context, teamID string) (sprint.StoryState, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT json(data) FROM story_states WHERE team_id = ?`, teamID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return sprint.StoryState{}, fmt.Errorf("story state for team %q: %w", teamID, sprint.ErrNotFound)
	}
	if err != nil {
		return sprint.StoryState{}, fmt.Errorf("loading story state: %w", err)
	}
	var st sprint.StoryState
	if err := json.Unmarshal([]byte(data), &st); err != nil {
		return sprint.StoryState{}, fmt.Errorf("decoding story state: %w", err)
	}
	if st.History == nil {
		st.History = []string{}
	}
	return st, nil
}

// PutBaseline replaces whatever state the team has with st, creating the
// record if needed. The stored version is bumped past any previous one.
func (s *Store) PutBaseline(ctx context.Context, st sprint.StoryState) (sprint.StoryState, error) {
	st = st.Clone()
	err := database.InTx(ctx, s.db, func(tx *sql.Tx) error {
		var version int64
		err := tx.QueryRowContext(ctx,
			`SELECT version FROM story_states WHERE team_id = ?`, st.TeamID,
		).Scan(&version)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("reading version: %w", err)
		}
		st.Version = version + 1
		st.UpdatedAt = s.nowUTC()

		data, err := json.Marshal(st)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO story_states (team_id, version, data) VALUES (?, ?, jsonb(?))
			 ON CONFLICT(team_id) DO UPDATE SET version = excluded.version, data = excluded.data`,
			st.TeamID, st.Version, string(data),
		)
		if err != nil {
			return fmt.Errorf("writing story state: %w", err)
		}
		return nil
	})
	if err != nil {
		return sprint.StoryState{}, err
	}
	return st, nil
}

// ApplyTransition writes tr.Next and, when requested, unlocks a chapter in a
// single transaction. The write only happens if the stored version still
// equals tr.FromVersion; otherwise sprint.ErrConflict is returned and nothing
// changes. The returned task ids are the ones that became visible with this
// write, in chapter order.
func (s *Store) ApplyTransition(ctx context.Context, tr sprint.Transition) (sprint.StoryState, []string, error) {
	next := tr.Next.Clone()
	next.TeamID = tr.TeamID
	next.Version = tr.FromVersion + 1
	next.UpdatedAt = s.nowUTC()

	unlocked := []string{}
	err := database.InTx(ctx, s.db, func(tx *sql.Tx) error {
		data, err := json.Marshal(next)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE story_states SET version = ?, data = jsonb(?) WHERE team_id = ? AND version = ?`,
			next.Version, string(data), tr.TeamID, tr.FromVersion,
		)
		if err != nil {
			return fmt.Errorf("updating story state: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("story state for team %q changed since version %d: %w", tr.TeamID, tr.FromVersion, sprint.ErrConflict)
		}

		if tr.UnlockChapter != nil {
			unlocked, err = unlockChapter(ctx, tx, tr.TeamID, *tr.UnlockChapter, next.UpdatedAt)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return sprint.StoryState{}, nil, err
	}
	return next, unlocked, nil
}
