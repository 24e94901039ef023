package shared

// Account administration permissions.
const (
	AreaAccounts = "accounts"

	PermAddUser    = "accounts.add_user"
	PermChangeUser = "accounts.change_user"
	PermViewUser   = "accounts.view_user"
)

// AccountsModels lists models exposed by the accounts area.
func AccountsModels() []string {
	return []string{"user"}
}
