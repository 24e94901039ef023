package shared

// Core platform permissions.
const (
	AreaCore = "core"

	PermAddCompanyProfile    = "core.add_companyprofile"
	PermChangeCompanyProfile = "core.change_companyprofile"
	PermViewCompanyProfile   = "core.view_companyprofile"
)

// CoreModels lists models exposed by the core area.
func CoreModels() []string {
	return []string{"companyprofile"}
}
