package shared

// Waybill permissions.
const (
	AreaWaybills = "waybills"

	PermViewWaybill = "waybills.view_waybill"
	PermAddWaybill  = "waybills.add_waybill"
)

// WaybillsModels lists models exposed by the waybills area.
func WaybillsModels() []string {
	return []string{"waybill"}
}
