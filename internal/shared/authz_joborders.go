package shared

// Job order permissions.
const (
	AreaJobOrders = "job_orders"

	PermViewJobOrder   = "job_orders.view_joborder"
	PermAddJobOrder    = "job_orders.add_joborder"
	PermChangeJobOrder = "job_orders.change_joborder"
)

// JobOrdersModels lists models exposed by the job_orders area.
func JobOrdersModels() []string {
	return []string{"joborder"}
}
