package model

// Company is one entry of the company directory.
type Company struct {
	ID           string   `json:"_id"`
	Name         string   `json:"name"`
	DisplayName  string   `json:"displayName,omitempty"`
	Address      *Address `json:"address,omitempty"`
	ContactEmail string   `json:"contactEmail,omitempty"`
	Phone        string   `json:"phone,omitempty"`
	Website      string   `json:"website,omitempty"`
	Industry     string   `json:"industry,omitempty"`
	CompanyType  string   `json:"companyType,omitempty"`
	IsActive     bool     `json:"isActive"`
}

// Label prefers the display name over the registered name.
func (c Company) Label() string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	return c.Name
}
