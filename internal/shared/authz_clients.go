package shared

// Client registry permissions.
const (
	AreaClients = "clients"

	PermViewClient   = "clients.view_client"
	PermAddClient    = "clients.add_client"
	PermChangeClient = "clients.change_client"
)

// ClientsModels lists models exposed by the clients area.
func ClientsModels() []string {
	return []string{"client"}
}
