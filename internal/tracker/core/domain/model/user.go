package model

// Role is the backend-assigned role of a user account.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleDriver    Role = "driver"
	RoleCarrier   Role = "carrier"
	RoleSupplier  Role = "supplier"
	RoleWarehouse Role = "warehouse"
)

type Address struct {
	City        string `json:"city"`
	Zip         string `json:"zip"`
	Street      string `json:"street"`
	HouseNumber string `json:"houseNumber"`
	District    string `json:"district,omitempty"`
	Country     string `json:"country"`
}

// User mirrors the backend user record. The backend historically served the
// identifier as "_id" and the company as "company"; newer responses use "id"
// and "companyId". Both pairs are kept and reconciled through ID()/Company().
type User struct {
	MongoID    string   `json:"_id,omitempty"`
	AltID      string   `json:"id,omitempty"`
	CompanyRef string   `json:"company,omitempty"`
	AltCompany string   `json:"companyId,omitempty"`
	FirstName  string   `json:"firstName"`
	LastName   string   `json:"lastName"`
	Email      string   `json:"email"`
	Role       Role     `json:"role,omitempty"`
	Roles      []Role   `json:"roles,omitempty"`
	Phone      string   `json:"phone,omitempty"`
	Username   string   `json:"username,omitempty"`
	Address    *Address `json:"address,omitempty"`
	IsAdmin    bool     `json:"isAdmin,omitempty"`
	IsApproved bool     `json:"isApproved,omitempty"`
}

func (u User) ID() string {
	if u.MongoID != "" {
		return u.MongoID
	}
	return u.AltID
}

func (u User) Company() string {
	if u.CompanyRef != "" {
		return u.CompanyRef
	}
	return u.AltCompany
}

// AllRoles flattens the single-role and multi-role fields.
func (u User) AllRoles() []Role {
	if len(u.Roles) > 0 {
		return u.Roles
	}
	if u.Role != "" {
		return []Role{u.Role}
	}
	return nil
}

func (u User) HasRole(r Role) bool {
	if u.IsAdmin && r == RoleAdmin {
		return true
	}
	for _, have := range u.AllRoles() {
		if have == r {
			return true
		}
	}
	return false
}

type AuthTokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// Session is the one canonical in-memory shape for an authenticated actor.
type Session struct {
	User   User       `json:"user"`
	Tokens AuthTokens `json:"tokens"`
}

// Valid reports whether the session carries the minimum fields the app needs
// to attribute actions to a user.
func (s Session) Valid() bool {
	return s.User.ID() != "" && s.User.Email != "" && s.User.FirstName != ""
}
