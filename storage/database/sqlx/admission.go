package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/pathway/core"
	"github.com/trezcool/pathway/core/admission"
)

var admissionColumns = []string{
	"id", "application_id", "student_id", "university", "program", "status", "decision_date", "tuition_fee",
	"deposit_paid", "visa_status", "visa_applied_at", "visa_decision_at", "visa_notes", "notes", "assigned_to",
	"created_at", "updated_at",
}

type admissionRow struct {
	ID             string      `db:"id"`
	ApplicationID  string      `db:"application_id"`
	StudentID      string      `db:"student_id"`
	University     string      `db:"university"`
	Program        string      `db:"program"`
	Status         string      `db:"status"`
	DecisionDate   string      `db:"decision_date"`
	TuitionFee     float64     `db:"tuition_fee"`
	DepositPaid    float64     `db:"deposit_paid"`
	VisaStatus     string      `db:"visa_status"`
	VisaAppliedAt  null.Time   `db:"visa_applied_at"`
	VisaDecisionAt null.Time   `db:"visa_decision_at"`
	VisaNotes      string      `db:"visa_notes"`
	Notes          string      `db:"notes"`
	AssignedTo     null.String `db:"assigned_to"`
	CreatedAt      time.Time   `db:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at"`
}

func toAdmissionRow(adm admission.Admission) admissionRow {
	return admissionRow{
		ID:             adm.ID,
		ApplicationID:  adm.ApplicationID,
		StudentID:      adm.StudentID,
		University:     adm.University,
		Program:        adm.Program,
		Status:         adm.Status,
		DecisionDate:   adm.DecisionDate,
		TuitionFee:     adm.TuitionFee,
		DepositPaid:    adm.DepositPaid,
		VisaStatus:     adm.VisaStatus,
		VisaAppliedAt:  adm.VisaAppliedAt,
		VisaDecisionAt: adm.VisaDecisionAt,
		VisaNotes:      adm.VisaNotes,
		Notes:          adm.Notes,
		AssignedTo:     nullString(adm.AssignedTo),
		CreatedAt:      adm.CreatedAt.UTC(),
		UpdatedAt:      adm.UpdatedAt.UTC(),
	}
}

func utcNullTime(t null.Time) null.Time {
	if t.Valid {
		t.Time = t.Time.UTC()
	}
	return t
}

func (r admissionRow) toAdmission() admission.Admission {
	return admission.Admission{
		ID:             r.ID,
		ApplicationID:  r.ApplicationID,
		StudentID:      r.StudentID,
		University:     r.University,
		Program:        r.Program,
		Status:         r.Status,
		DecisionDate:   r.DecisionDate,
		TuitionFee:     r.TuitionFee,
		DepositPaid:    r.DepositPaid,
		VisaStatus:     r.VisaStatus,
		VisaAppliedAt:  utcNullTime(r.VisaAppliedAt),
		VisaDecisionAt: utcNullTime(r.VisaDecisionAt),
		VisaNotes:      r.VisaNotes,
		Notes:          r.Notes,
		AssignedTo:     r.AssignedTo.String,
		CreatedAt:      r.CreatedAt.UTC(),
		UpdatedAt:      r.UpdatedAt.UTC(),
	}
}

type admissionRepository struct {
	db *sqlx.DB
}

var _ admission.Repository = (*admissionRepository)(nil) // interface compliance check

func NewAdmissionRepository(db *sqlx.DB) admission.Repository {
	return &admissionRepository{db: db}
}

func (repo *admissionRepository) Create(ctx context.Context, adm admission.Admission) (admission.Admission, error) {
	if adm.ID == "" {
		adm.ID = newID()
	}
	if _, err := namedExec(ctx, repo.db, insertQuery("admissions", admissionColumns), toAdmissionRow(adm)); err != nil {
		return admission.Admission{}, errors.Wrap(err, "inserting admission")
	}
	return adm, nil
}

func (repo *admissionRepository) Get(ctx context.Context, id string) (admission.Admission, error) {
	if !isUUID(id) {
		return admission.Admission{}, admission.ErrNotFound
	}
	var r admissionRow
	b := psql.Select(admissionColumns...).From("admissions").Where(sq.Eq{"id": id})
	if err := get(ctx, repo.db, &r, b); err != nil {
		return admission.Admission{}, trapNoRows(err, admission.ErrNotFound, "selecting admission")
	}
	return r.toAdmission(), nil
}

func (repo *admissionRepository) Update(ctx context.Context, adm admission.Admission) (admission.Admission, error) {
	if !isUUID(adm.ID) {
		return admission.Admission{}, admission.ErrNotFound
	}
	res, err := namedExec(ctx, repo.db, updateQuery("admissions", admissionColumns), toAdmissionRow(adm))
	if err != nil {
		return admission.Admission{}, errors.Wrap(err, "updating admission")
	}
	if err = checkUpdated(res, admission.ErrNotFound); err != nil {
		return admission.Admission{}, err
	}
	return adm, nil
}

func (repo *admissionRepository) Query(ctx context.Context, filter admission.QueryFilter, ordering []core.DBOrdering, page core.Page) ([]admission.Admission, error) {
	b := psql.Select(admissionColumns...).From("admissions")
	if filter.Search != "" {
		b = b.Where(search(filter.Search, "university", "program"))
	}
	if len(filter.Statuses) > 0 {
		b = b.Where(sq.Eq{"status": filter.Statuses})
	}
	if len(filter.VisaStatuses) > 0 {
		b = b.Where(sq.Eq{"visa_status": filter.VisaStatuses})
	}
	b, ok := whereUUIDs(b,
		"application_id", filter.ApplicationID,
		"student_id", filter.StudentID,
		"assigned_to", filter.AssignedTo,
		"assigned_to", filter.VisibleTo,
	)
	if !ok {
		return []admission.Admission{}, nil
	}
	b = orderPage(createdRange(b, filter.CreatedFrom, filter.CreatedTo), ordering, page)

	var rows []admissionRow
	if err := selectAll(ctx, repo.db, &rows, b); err != nil {
		return nil, errors.Wrap(err, "selecting admissions")
	}
	adms := make([]admission.Admission, 0, len(rows))
	for _, r := range rows {
		adms = append(adms, r.toAdmission())
	}
	return adms, nil
}
