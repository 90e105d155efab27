package model

// CanViewLocation decides whether viewer may see subject's live position.
// Order matters: self and admin shortcut before any share-rule lookup.
func CanViewLocation(viewer, subject User, rule *ShareRule) bool {
	if viewer.ID() == subject.ID() {
		return true
	}
	if viewer.HasRole(RoleAdmin) {
		return true
	}
	if viewer.Company() != "" && viewer.Company() == subject.Company() {
		return true
	}
	if rule == nil || !rule.Enabled {
		return false
	}
	for _, r := range rule.AllowedRoles {
		if viewer.HasRole(r) {
			return true
		}
	}
	for _, id := range rule.AllowedCustomerCompanyIDs {
		if id == viewer.Company() {
			return true
		}
	}
	return false
}
