package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/playperu/sprintstory/internal/database"
	"github.com/playperu/sprintstory/internal/sprint"
)

// SyncTaskDefinitions upserts the task catalog. Definitions no longer listed
// are kept so teams that already unlocked them still see them.
func (s *Store) SyncTaskDefinitions(ctx context.Context, defs []sprint.Task) error {
	return database.InTx(ctx, s.db, func(tx *sql.Tx) error {
		pos := make(map[int]int)
		for _, d := range defs {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO task_definitions (id, chapter, title, position) VALUES (?, ?, ?, ?)
				 ON CONFLICT(id) DO UPDATE SET chapter = excluded.chapter, title = excluded.title, position = excluded.position`,
				d.ID, d.Chapter, d.Title, pos[d.Chapter],
			)
			if err != nil {
				return fmt.Errorf("upserting task %q: %w", d.ID, err)
			}
			pos[d.Chapter]++
		}
		return nil
	})
}

// UnlockedTasks lists the tasks visible to a team, by chapter then position.
func (s *Store) UnlockedTasks(ctx context.Context, teamID string) ([]sprint.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.chapter, d.title, tt.unlocked_at
		FROM team_tasks tt
		JOIN task_definitions d ON d.id = tt.task_id
		WHERE tt.team_id = ?
		ORDER BY d.chapter, d.position
	`, teamID)
	if err != nil {
		return nil, fmt.Errorf("listing unlocked tasks: %w", err)
	}
	defer rows.Close()

	out := []sprint.Task{}
	for rows.Next() {
		var (
			t  sprint.Task
			at sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.Chapter, &t.Title, &at); err != nil {
			return nil, err
		}
		ts, err := parseTime(at)
		if err != nil {
			return nil, err
		}
		if ts != nil {
			t.UnlockedAt = *ts
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UnlockedChapters lists the chapters a team has unlocked, ascending.
func (s *Store) UnlockedChapters(ctx context.Context, teamID string) ([]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT chapter FROM chapter_unlocks WHERE team_id = ? ORDER BY chapter`, teamID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing unlocked chapters: %w", err)
	}
	defer rows.Close()

	out := []int{}
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func unlockChapter(ctx context.Context, tx *sql.Tx, teamID string, chapter int, at time.Time) ([]string, error) {
	stamp := at.Format(timeLayout)
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO chapter_unlocks (team_id, chapter, unlocked_at) VALUES (?, ?, ?)`,
		teamID, chapter, stamp,
	); err != nil {
		return nil, fmt.Errorf("unlocking chapter %d: %w", chapter, err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT id FROM task_definitions WHERE chapter = ? ORDER BY position`, chapter,
	)
	if err != nil {
		return nil, fmt.Errorf("listing chapter tasks: %w", err)
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

	unlocked := []string{}
	for _, id := range ids {
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO team_tasks (team_id, task_id, unlocked_at) VALUES (?, ?, ?)`,
			teamID, id, stamp,
		)
		if err != nil {
			return nil, fmt.Errorf("unlocking task %q: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			unlocked = append(unlocked, id)
		}
	}
	return unlocked, nil
}
