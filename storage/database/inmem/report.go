package inmemdb

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/pathway/core/report"
)

type reportRepository struct {
	db *DB
}

var _ report.Repository = (*reportRepository)(nil) // interface compliance check

func NewReportRepository(db *DB) report.Repository {
	return &reportRepository{db: db}
}

func (repo *reportRepository) StatusCounts(_ context.Context, entity report.Entity, visibleTo string) ([]report.StatusCount, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	byStatus := make(map[string]int)
	switch entity {
	case report.EntityLeads:
		for _, l := range repo.db.leads {
			if visibleTo == "" || l.AssignedTo == visibleTo || l.CreatedBy == visibleTo {
				byStatus[l.Status]++
			}
		}
	case report.EntityApplications:
		for _, app := range repo.db.applications {
			if eqIfSet(app.AssignedTo, visibleTo) {
				byStatus[app.Status]++
			}
		}
	case report.EntityAdmissions:
		for _, adm := range repo.db.admissions {
			if eqIfSet(adm.AssignedTo, visibleTo) {
				byStatus[adm.Status]++
			}
		}
	default:
		return nil, errors.Errorf("unknown report entity %q", entity)
	}

	counts := make([]report.StatusCount, 0, len(byStatus))
	for status, n := range byStatus {
		counts = append(counts, report.StatusCount{Status: status, Count: n})
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].Status < counts[j].Status })
	return counts, nil
}
