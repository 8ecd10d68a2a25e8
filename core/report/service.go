// Package report computes the dashboard aggregates.
package report

import (
	"context"
	"sort"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/pathway/core/access"
	"github.com/trezcool/pathway/core/activity"
	"github.com/trezcool/pathway/core/dropdown"
	"github.com/trezcool/pathway/core/event"
)

const (
	UpcomingWindow = 30 * 24 * time.Hour
	UpcomingLimit  = 10
	RecentLimit    = 10
)

// Entity is a record type whose statuses are counted.
type Entity string

const (
	EntityLeads        Entity = "leads"
	EntityApplications Entity = "applications"
	EntityAdmissions   Entity = "admissions"
)

type StatusCount struct {
	Status string `json:"status" boil:"status"`
	Label  string `json:"label" boil:"-"`
	Count  int    `json:"count" boil:"count"`
}

type (
	Repository interface {
		// StatusCounts counts the records of entity per status.
		// A non-empty visibleTo only counts the records assigned to (or, for leads, created by) this user.
		StatusCounts(ctx context.Context, entity Entity, visibleTo string) ([]StatusCount, error)
	}

	Dashboard struct {
		Leads            []StatusCount       `json:"leads"`
		Applications     []StatusCount       `json:"applications"`
		Admissions       []StatusCount       `json:"admissions"`
		UpcomingEvents   []event.Event       `json:"upcoming_events"`
		RecentActivities []activity.Activity `json:"recent_activities"`
	}

	Service struct {
		repo       Repository
		events     *event.Service
		activities *activity.Service
		dropdowns  *dropdown.Service
	}
)

func NewService(repo Repository, events *event.Service, activities *activity.Service, dropdowns *dropdown.Service) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(events, "events"),
		vala.IsNotNil(activities, "activities"),
		vala.IsNotNil(dropdowns, "dropdowns"),
	).CheckAndPanic()

	return &Service{repo: repo, events: events, activities: activities, dropdowns: dropdowns}
}

// Dashboard gathers the aggregates of the modules actor can read, concurrently.
func (svc *Service) Dashboard(ctx context.Context, actor access.Actor) (Dashboard, error) {
	var dash Dashboard
	visibleTo := ""
	if !actor.SeesAll() {
		visibleTo = actor.ID
	}

	g, ctx := errgroup.WithContext(ctx)
	counts := []struct {
		module access.Module
		entity Entity
		ddMod  string
		dest   *[]StatusCount
	}{
		{access.ModuleLeads, EntityLeads, dropdown.ModuleLead, &dash.Leads},
		{access.ModuleApplications, EntityApplications, dropdown.ModuleApplication, &dash.Applications},
		{access.ModuleAdmissions, EntityAdmissions, dropdown.ModuleAdmission, &dash.Admissions},
	}
	for _, c := range counts {
		if !actor.Can(c.module, access.Read) {
			continue
		}
		c := c
		g.Go(func() error {
			sc, err := svc.statusCounts(ctx, c.entity, c.ddMod, visibleTo)
			if err != nil {
				return err
			}
			*c.dest = sc
			return nil
		})
	}
	if actor.Can(access.ModuleEvents, access.Read) {
		g.Go(func() error {
			evts, err := svc.events.Upcoming(ctx, UpcomingWindow, UpcomingLimit)
			dash.UpcomingEvents = evts
			return err
		})
	}
	g.Go(func() error {
		acts, err := svc.activities.Recent(ctx, actor, RecentLimit)
		dash.RecentActivities = acts
		return err
	})

	if err := g.Wait(); err != nil {
		return Dashboard{}, errors.Wrap(err, "building dashboard")
	}
	return dash, nil
}

// statusCounts returns the counts of every option of the status dropdown, in the dropdown order,
// followed by the counts of unknown statuses.
func (svc *Service) statusCounts(ctx context.Context, entity Entity, ddModule, visibleTo string) ([]StatusCount, error) {
	counts, err := svc.repo.StatusCounts(ctx, entity, visibleTo)
	if err != nil {
		return nil, errors.Wrapf(err, "counting %s", entity)
	}
	r, err := svc.dropdowns.Resolver(ctx, ddModule)
	if err != nil {
		return nil, errors.Wrap(err, "loading dropdowns")
	}

	byStatus := make(map[string]int, len(counts))
	for _, c := range counts {
		byStatus[c.Status] += c.Count
	}
	opts := r.Options(dropdown.FieldStatus)
	result := make([]StatusCount, 0, len(opts)+len(byStatus))
	for _, opt := range opts {
		result = append(result, StatusCount{Status: opt.Key, Label: opt.Label, Count: byStatus[opt.Key]})
		delete(byStatus, opt.Key)
	}
	var unknown []StatusCount
	for status, n := range byStatus {
		unknown = append(unknown, StatusCount{Status: status, Label: status, Count: n})
	}
	sort.Slice(unknown, func(i, j int) bool { return unknown[i].Status < unknown[j].Status })
	return append(result, unknown...), nil
}
