package activity

import (
	"strconv"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/pathway/core"
	"github.com/trezcool/pathway/core/dropdown"
)

type EntityType string

const (
	EntityLead        EntityType = "lead"
	EntityStudent     EntityType = "student"
	EntityApplication EntityType = "application"
	EntityAdmission   EntityType = "admission"
	EntityEvent       EntityType = "event"
)

var EntityTypes = []EntityType{EntityLead, EntityStudent, EntityApplication, EntityAdmission, EntityEvent}

func ParseEntityType(s string) (EntityType, bool) {
	for _, et := range EntityTypes {
		if string(et) == s {
			return et, true
		}
	}
	return "", false
}

// dropdownModule is the dropdown module holding the options of the entity's fields.
func (et EntityType) dropdownModule() string {
	switch et {
	case EntityLead:
		return dropdown.ModuleLead
	case EntityStudent:
		return dropdown.ModuleStudent
	case EntityApplication:
		return dropdown.ModuleApplication
	case EntityAdmission:
		return dropdown.ModuleAdmission
	case EntityEvent:
		return dropdown.ModuleEvent
	}
	return ""
}

type Type string

const (
	TypeComment      Type = "comment"
	TypeCreated      Type = "created"
	TypeStatusChange Type = "status_change"
	TypeFieldChange  Type = "field_change"
	TypeConverted    Type = "converted"
)

type Activity struct {
	ID         string     `json:"id"`
	EntityType EntityType `json:"entity_type"`
	EntityID   string     `json:"entity_id"`
	Type       Type       `json:"type"`
	Content    string     `json:"content"`
	Field      string     `json:"field,omitempty"`
	OldValue   string     `json:"old_value,omitempty"`
	NewValue   string     `json:"new_value,omitempty"`
	OldLabel   string     `json:"old_label,omitempty"`
	NewLabel   string     `json:"new_label,omitempty"`
	UserID     string     `json:"user_id"`
	UserName   string     `json:"user_name"`
	ClientRef  string     `json:"client_ref,omitempty"`
	CreatedAt  time.Time  `json:"created_at"` // UTC
}

type NewComment struct {
	Content   string `json:"content" validate:"required,notblank,max=5000"`
	ClientRef string `json:"client_ref" validate:"omitempty,max=100"`
}

func (nc *NewComment) Clean() {
	nc.Content = core.CleanString(nc.Content)
	nc.ClientRef = core.CleanString(nc.ClientRef)
}

type QueryFilter struct {
	EntityType EntityType
	EntityID   string
	UserID     string
}

// Change is the change of a single field of a record.
type Change struct {
	Field string
	Old   string
	New   string
}

// ChangeSet collects the changes applied by a partial update.
// Each Set* method only assigns (and records) a value when src is set and differs from dst.
type ChangeSet []Change

func (cs *ChangeSet) SetString(field string, dst *string, src *string) {
	if src == nil || *src == *dst {
		return
	}
	*cs = append(*cs, Change{Field: field, Old: *dst, New: *src})
	*dst = *src
}

func (cs *ChangeSet) SetTime(field string, dst *time.Time, src *time.Time) {
	if src == nil || src.Equal(*dst) {
		return
	}
	*cs = append(*cs, Change{Field: field, Old: formatTime(*dst), New: formatTime(*src)})
	*dst = src.UTC()
}

// SetNullTime clears dst when src is the zero time.
func (cs *ChangeSet) SetNullTime(field string, dst *null.Time, src *time.Time) {
	if src == nil {
		return
	}
	var old time.Time
	if dst.Valid {
		old = dst.Time
	}
	if src.Equal(old) {
		return
	}
	*cs = append(*cs, Change{Field: field, Old: formatTime(old), New: formatTime(*src)})
	if src.IsZero() {
		*dst = null.Time{}
	} else {
		*dst = null.TimeFrom(src.UTC())
	}
}

func (cs *ChangeSet) SetFloat(field string, dst *float64, src *float64) {
	if src == nil || *src == *dst {
		return
	}
	*cs = append(*cs, Change{
		Field: field,
		Old:   strconv.FormatFloat(*dst, 'f', -1, 64),
		New:   strconv.FormatFloat(*src, 'f', -1, 64),
	})
	*dst = *src
}

func (cs *ChangeSet) SetInt(field string, dst *int, src *int) {
	if src == nil || *src == *dst {
		return
	}
	*cs = append(*cs, Change{Field: field, Old: strconv.Itoa(*dst), New: strconv.Itoa(*src)})
	*dst = *src
}

func (cs ChangeSet) Has(field string) bool {
	for _, c := range cs {
		if c.Field == field {
			return true
		}
	}
	return false
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
