package dropdown

import (
	"time"

	"github.com/trezcool/pathway/core"
)

// Modules
const (
	ModuleLead         = "lead"
	ModuleStudent      = "student"
	ModuleApplication  = "application"
	ModuleAdmission    = "admission"
	ModuleEvent        = "event"
	ModuleRegistration = "registration"
)

var Modules = []string{ModuleLead, ModuleStudent, ModuleApplication, ModuleAdmission, ModuleEvent, ModuleRegistration}

// Fields
const (
	FieldStatus         = "status"
	FieldSource         = "source"
	FieldStudyLevel     = "study_level"
	FieldEducationLevel = "education_level"
	FieldVisaStatus     = "visa_status"
	FieldType           = "type"
)

type Option struct {
	ID        string    `json:"id"`
	Module    string    `json:"module"`
	Field     string    `json:"field"`
	Key       string    `json:"key"`
	Label     string    `json:"label"`
	SortOrder int       `json:"sort_order"`
	Color     string    `json:"color"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ModuleOptions are the active options of a module grouped by field.
type ModuleOptions struct {
	Module string              `json:"module"`
	Fields map[string][]Option `json:"fields"`
}

type NewOption struct {
	Module    string `json:"module" validate:"required,oneof=lead student application admission event registration"`
	Field     string `json:"field" validate:"required,alphanum_,max=50"`
	Key       string `json:"key" validate:"required,alphanum_,max=50"`
	Label     string `json:"label" validate:"required,notblank,max=100"`
	SortOrder int    `json:"sort_order"`
	Color     string `json:"color" validate:"omitempty,hexcolor"`
}

func (no *NewOption) Clean() {
	no.Module = core.CleanString(no.Module, true /* lower */)
	no.Field = core.CleanString(no.Field, true /* lower */)
	no.Key = core.CleanString(no.Key, true /* lower */)
	no.Label = core.CleanString(no.Label)
	no.Color = core.CleanString(no.Color)
}

// UpdateOption holds the editable attributes of an Option. Keys are immutable since records store them.
type UpdateOption struct {
	Label     *string `json:"label" validate:"omitempty,notblank,max=100"`
	SortOrder *int    `json:"sort_order"`
	Color     *string `json:"color" validate:"omitempty,hexcolor"`
	IsActive  *bool   `json:"is_active"`
}

// SeedOption is an entry of the seed file.
type SeedOption struct {
	Key   string `yaml:"key"`
	Label string `yaml:"label"`
	Color string `yaml:"color"`
}

// Seeds maps module -> field -> options.
type Seeds map[string]map[string][]SeedOption
