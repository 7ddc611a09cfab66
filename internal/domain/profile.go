package domain

import "time"

// ============================================================
// Profile edit drafts
// ============================================================

// Profile form field names. They double as keys of ProfileDraft.Errors.
const (
	FieldName      = "name"
	FieldEmail     = "email"
	FieldCPF       = "cpf"
	FieldBirthDate = "birthDate"
	FieldPhone     = "phone"
	FieldAddress   = "address"
)

// ProfileFields lists the form fields in display order.
var ProfileFields = []string{FieldName, FieldEmail, FieldCPF, FieldBirthDate, FieldPhone, FieldAddress}

// ProfileForm holds profile values in display form:
// CPF NNN.NNN.NNN-NN, phone (NN) NNNNN-NNNN, birth date DD/MM/YYYY.
type ProfileForm struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	CPF       string `json:"cpf"`
	BirthDate string `json:"birthDate"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
}

// Get returns the value of a form field by name.
func (f ProfileForm) Get(field string) (string, bool) {
	switch field {
	case FieldName:
		return f.Name, true
	case FieldEmail:
		return f.Email, true
	case FieldCPF:
		return f.CPF, true
	case FieldBirthDate:
		return f.BirthDate, true
	case FieldPhone:
		return f.Phone, true
	case FieldAddress:
		return f.Address, true
	}
	return "", false
}

// Set assigns a form field by name. It reports false for unknown fields.
func (f *ProfileForm) Set(field, value string) bool {
	switch field {
	case FieldName:
		f.Name = value
	case FieldEmail:
		f.Email = value
	case FieldCPF:
		f.CPF = value
	case FieldBirthDate:
		f.BirthDate = value
	case FieldPhone:
		f.Phone = value
	case FieldAddress:
		f.Address = value
	default:
		return false
	}
	return true
}

// ProfileDraft is one in-progress profile edit. It is never persisted.
type ProfileDraft struct {
	ID       string            `json:"id"`
	UserID   ID                `json:"userId"`
	Values   ProfileForm       `json:"values"`
	Original ProfileForm       `json:"-"`
	Errors   map[string]string `json:"errors"`
	OpenedAt time.Time         `json:"openedAt"`
}

// Valid reports whether the last validation left no field errors.
func (d *ProfileDraft) Valid() bool {
	return len(d.Errors) == 0
}
