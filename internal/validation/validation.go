// Package validation holds the field rules for profile edits and registration.
package validation

import (
	"errors"
	"regexp"
	"strings"

	validation "github.com/jellydator/validation"

	"github.com/boddenberg/artfy-client-go/internal/domain"
	"github.com/boddenberg/artfy-client-go/internal/format"
)

var (
	cpfPattern   = regexp.MustCompile(`^\d{3}\.\d{3}\.\d{3}-\d{2}$`)
	datePattern  = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\(\d{2}\) \d{5}-\d{4}$`)

	// Registration only checks the loose shape the signup form always accepted.
	signupEmailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)
)

// Messages shown next to each field.
const (
	MsgNameRequired    = "O nome é obrigatório."
	MsgCPFFormat       = "CPF deve estar no formato 000.000.000-00."
	MsgDateFormat      = "Data deve estar no formato DD/MM/AAAA."
	MsgEmailInvalid    = "Por favor, insira um e-mail válido."
	MsgPhoneFormat     = "Telefone deve estar no formato (00) 00000-0000."
	MsgAddressRequired = "O endereço é obrigatório."

	MsgPasswordMismatch = "As senhas não coincidem"
	MsgPasswordLength   = "Senha deve ter pelo menos 8 caracteres."
	MsgSignupName       = "Por favor, preencha o nome."
	MsgSignupCPF        = "CPF deve ter 11 dígitos."
	MsgSignupDate       = "Data inválida. Use o formato DD/MM/AAAA."
	MsgSignupPhone      = "Telefone inválido."
)

const (
	minPasswordLength = 8
	cpfDigits         = 11
	minPhoneDigits    = 10
)

// NotBlank validates that a string is not empty after trimming whitespace.
func NotBlank(message string) validation.StringRule {
	return validation.NewStringRuleWithError(
		func(s string) bool {
			return strings.TrimSpace(s) != ""
		},
		validation.NewError("validation_not_blank", message),
	)
}

// pattern requires a value and checks it against re, reporting message either way.
func pattern(re *regexp.Regexp, code, message string) []validation.Rule {
	return []validation.Rule{
		validation.Required.Error(message),
		validation.Match(re).ErrorObject(validation.NewError(code, message)),
	}
}

func digitCount(check func(n int) bool, code, message string) validation.Rule {
	return validation.By(func(value interface{}) error {
		s, _ := value.(string)
		if !check(len(format.Digits(s))) {
			return validation.NewError(code, message)
		}
		return nil
	})
}

// Profile checks a display-form profile against the canonical patterns.
// It returns an empty map when every field is valid and never mutates f.
func Profile(f domain.ProfileForm) map[string]string {
	err := validation.ValidateStruct(&f,
		validation.Field(&f.Name,
			validation.Required.Error(MsgNameRequired),
			NotBlank(MsgNameRequired),
		),
		validation.Field(&f.CPF, pattern(cpfPattern, "validation_cpf", MsgCPFFormat)...),
		validation.Field(&f.BirthDate, pattern(datePattern, "validation_date", MsgDateFormat)...),
		validation.Field(&f.Email, pattern(emailPattern, "validation_email", MsgEmailInvalid)...),
		validation.Field(&f.Phone, pattern(phonePattern, "validation_phone", MsgPhoneFormat)...),
		validation.Field(&f.Address,
			validation.Required.Error(MsgAddressRequired),
			NotBlank(MsgAddressRequired),
		),
	)
	return FieldErrors(err)
}

// Registration checks the signup form before anything is sent. All failing
// fields are reported together.
func Registration(in domain.RegisterInput) map[string]string {
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Name,
			validation.Required.Error(MsgSignupName),
			NotBlank(MsgSignupName),
		),
		validation.Field(&in.Email,
			validation.Required.Error(MsgEmailInvalid),
			NotBlank(MsgEmailInvalid),
			validation.Match(signupEmailPattern).ErrorObject(validation.NewError("validation_email", MsgEmailInvalid)),
		),
		validation.Field(&in.Password,
			validation.Required.Error(MsgPasswordLength),
			validation.RuneLength(minPasswordLength, 0).ErrorObject(validation.NewError("validation_password_length", MsgPasswordLength)),
		),
		validation.Field(&in.ConfirmPassword,
			validation.By(func(value interface{}) error {
				if confirm, _ := value.(string); confirm != in.Password {
					return validation.NewError("validation_password_mismatch", MsgPasswordMismatch)
				}
				return nil
			}),
		),
		validation.Field(&in.CPF,
			digitCount(func(n int) bool { return n == cpfDigits }, "validation_cpf_digits", MsgSignupCPF),
		),
		validation.Field(&in.BirthDate, pattern(datePattern, "validation_date", MsgSignupDate)...),
		validation.Field(&in.Phone,
			digitCount(func(n int) bool { return n >= minPhoneDigits }, "validation_phone_digits", MsgSignupPhone),
		),
	)
	return FieldErrors(err)
}

// FieldErrors flattens a jellydator error into field -> message.
// A nil error yields an empty, non-nil map.
func FieldErrors(err error) map[string]string {
	out := make(map[string]string)
	if err == nil {
		return out
	}

	var fields validation.Errors
	if !errors.As(err, &fields) {
		out[""] = err.Error()
		return out
	}
	for field, fieldErr := range fields {
		var ve validation.Error
		if errors.As(fieldErr, &ve) {
			out[field] = ve.Message()
			continue
		}
		out[field] = fieldErr.Error()
	}
	return out
}

// AsError turns a non-empty field map into a *domain.ErrValidation.
func AsError(fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	return &domain.ErrValidation{Fields: fields}
}
