package lead

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/pathway/core"
)

func InitValidators(validate *validator.Validate, _ ut.Translator) {
	validate.RegisterStructValidation(newLeadStructLevelValidation, NewLead{})
}

func newLeadStructLevelValidation(sl validator.StructLevel) {
	nl := sl.Current().Interface().(NewLead)
	core.ValidateEmailOrPhone(sl, nl.Email, nl.Phone)
}
