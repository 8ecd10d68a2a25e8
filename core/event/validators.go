package event

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/pathway/core"
)

func InitValidators(validate *validator.Validate, _ ut.Translator) {
	validate.RegisterStructValidation(newRegistrationStructLevelValidation, NewRegistration{})
}

func newRegistrationStructLevelValidation(sl validator.StructLevel) {
	nr := sl.Current().Interface().(NewRegistration)
	core.ValidateEmailOrPhone(sl, nr.Email, nr.Phone)
}
