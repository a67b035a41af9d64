package errs

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entrans "github.com/go-playground/validator/v10/translations/en"
)

var (
	validate   *validator.Validate
	translator ut.Translator
)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Report field names from json tags so messages match the wire format.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	translator, _ = uni.GetTranslator("en")
	_ = entrans.RegisterDefaultTranslations(validate, translator)
}

// FieldError names one request field that failed validation.
type FieldError struct {
	Field string `json:"field"`
	Err   string `json:"error"`
}

// FieldErrors is the set of validation failures for one request.
type FieldErrors []FieldError

// Error implements the error interface.
func (fe FieldErrors) Error() string {
	d, err := json.Marshal(fe)
	if err != nil {
		return err.Error()
	}
	return string(d)
}

// Check validates v against its struct tags, returning an InvalidArgument
// error carrying the per-field failures.
func Check(v any) error {
	if err := validate.Struct(v); err != nil {
		verrors, ok := err.(validator.ValidationErrors)
		if !ok {
			return New(InvalidArgument, err)
		}

		var fields FieldErrors
		for _, verror := range verrors {
			fields = append(fields, FieldError{
				Field: verror.Field(),
				Err:   verror.Translate(translator),
			})
		}
		return Newf(InvalidArgument, "validation failed: %s", fields.Error())
	}
	return nil
}

// NewFieldErrors builds an InvalidArgument error for a single named field.
func NewFieldErrors(field string, err error) *Error {
	fe := FieldErrors{{Field: field, Err: err.Error()}}
	return Newf(InvalidArgument, "validation failed: %s", fe.Error())
}
