package handler

import (
    "reflect"
    "strings"

    "github.com/go-playground/locales/en"
    ut "github.com/go-playground/universal-translator"
    "github.com/go-playground/validator/v10"
    en_translations "github.com/go-playground/validator/v10/translations/en"
)

const (
    notBlankTag  = "notblank"
    notBlankText = "{0} must not be blank"
)

// Validator adapts go-playground/validator to echo.Validator and keeps the
// English translator used to render field errors.
type Validator struct {
    validate   *validator.Validate
    Translator ut.Translator
}

// NewValidator registers the English messages, the notblank tag and JSON
// field names.
func NewValidator() *Validator {
    validate := validator.New()

    _en := en.New()
    uni := ut.New(_en, _en)
    trans, _ := uni.GetTranslator("en")
    _ = en_translations.RegisterDefaultTranslations(validate, trans)

    // Use JSON tag names for errors instead of Go struct names.
    validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
        name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
        if name == "-" {
            return ""
        }
        return name
    })

    _ = validate.RegisterValidation(notBlankTag, func(fl validator.FieldLevel) bool {
        return strings.TrimSpace(fl.Field().String()) != ""
    })
    _ = validate.RegisterTranslation(
        notBlankTag, trans,
        func(t ut.Translator) error { return t.Add(notBlankTag, notBlankText, false) },
        func(t ut.Translator, fe validator.FieldError) string {
            s, _ := t.T(notBlankTag, fe.Field())
            return s
        },
    )

    return &Validator{validate: validate, Translator: trans}
}

func (v *Validator) Validate(i interface{}) error {
    return v.validate.Struct(i)
}

// FieldErrors renders validation errors as field → message.
func (v *Validator) FieldErrors(errs validator.ValidationErrors) map[string]string {
    out := make(map[string]string, len(errs))
    for _, fe := range errs {
        out[fe.Field()] = fe.Translate(v.Translator)
    }
    return out
}
