// Package boiledrepos implements the read-only reporting queries with volatiletech/sqlboiler raw queries.
package boiledrepos

import (
	"context"

	"github.com/pkg/errors"
	"github.com/volatiletech/sqlboiler/v4/boil"
	"github.com/volatiletech/sqlboiler/v4/queries"

	"github.com/trezcool/pathway/core/report"
)

type countSource struct {
	table      string
	visibility string // WHERE clause bound to the visible user ID
}

var countSources = map[report.Entity]countSource{
	report.EntityLeads:        {table: "leads", visibility: "assigned_to = $1 OR created_by = $1"},
	report.EntityApplications: {table: "applications", visibility: "assigned_to = $1"},
	report.EntityAdmissions:   {table: "admissions", visibility: "assigned_to = $1"},
}

type reportRepository struct {
	exec boil.ContextExecutor
}

var _ report.Repository = (*reportRepository)(nil) // interface compliance check

func NewReportRepository(exec boil.ContextExecutor) report.Repository {
	return &reportRepository{exec: exec}
}

func (repo *reportRepository) StatusCounts(ctx context.Context, entity report.Entity, visibleTo string) ([]report.StatusCount, error) {
	src, ok := countSources[entity]
	if !ok {
		return nil, errors.Errorf("unknown report entity %q", entity)
	}

	var args []interface{}
	q := "SELECT status, count(*) AS count FROM " + src.table
	if visibleTo != "" {
		q += " WHERE " + src.visibility
		args = append(args, visibleTo)
	}
	q += " GROUP BY status ORDER BY status"

	counts := []report.StatusCount{}
	if err := queries.Raw(q, args...).Bind(ctx, repo.exec, &counts); err != nil {
		return nil, errors.Wrapf(err, "counting %s per status", entity)
	}
	return counts, nil
}
