package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/playperu/sprintstory/internal/sprint"
)

// SeedDemo creates a demo cohort with one team if no cohorts exist.
// Idempotent: does nothing once any cohort is present.
func SeedDemo(ctx context.Context, logger *slog.Logger, dir Directory, now time.Time) error {
	existing, err := dir.ListCohorts(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	starts := now.UTC().Truncate(24 * time.Hour)
	ends := starts.AddDate(0, 0, 42)
	cohort, err := dir.CreateCohort(ctx, sprint.Cohort{Name: "Demo cohort", StartsAt: &starts, EndsAt: &ends})
	if err != nil {
		return err
	}

	team, err := dir.CreateTeam(ctx, cohort.ID, "Demo team", []sprint.Member{
		{Name: "Maria", Role: "Product Manager"},
		{Name: "Kenji", Role: "Developer"},
		{Name: "Lucia", Role: "Designer"},
		{Name: "Omar", Role: "Marketing"},
	})
	if err != nil {
		return err
	}

	logger.Info("demo cohort created and seeded", "cohort_id", cohort.ID, "team_id", team.ID)
	return nil
}
