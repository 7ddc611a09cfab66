package domain

// ============================================================
// Auth request and response types, matching the backend API.
// ============================================================

// DefaultAddress is sent on signup when the shopper leaves the address blank.
const DefaultAddress = "Endereço padrão"

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email string `json:"email"`
	Pass  string `json:"pass"`
}

// RegisterInput is what the shopper typed into the registration form.
// Fields may be in display or raw form; the gateway canonicalizes them.
type RegisterInput struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	CPF             string `json:"cpf"`
	BirthDate       string `json:"birthDate"`
	Phone           string `json:"phone"`
	Address         string `json:"address,omitempty"`
}

// SignupRequest is the body for POST /auth/signup, always in wire form.
type SignupRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Pass      string `json:"pass"`
	CPF       string `json:"cpf"`
	BirthDate string `json:"birthDate"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
}

// AddToCartRequest is the body for POST /cart/add.
type AddToCartRequest struct {
	ProductID ID  `json:"productId"`
	Quantity  int `json:"quantity"`
}

// ProfilePatch is the body for PUT /user/:id. Nil fields are left out, so
// only changed values reach the backend. Email is deliberately absent.
type ProfilePatch struct {
	Name      *string `json:"name,omitempty"`
	CPF       *string `json:"cpf,omitempty"`
	BirthDate *string `json:"birthDate,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Address   *string `json:"address,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p ProfilePatch) Empty() bool {
	return p.Name == nil && p.CPF == nil && p.BirthDate == nil && p.Phone == nil && p.Address == nil
}
