package shared

// Receipt permissions.
const (
	AreaReceipts = "receipts"

	PermViewReceipt = "receipts.view_receipt"
	PermAddReceipt  = "receipts.add_receipt"
)

// ReceiptsModels lists models exposed by the receipts area.
func ReceiptsModels() []string {
	return []string{"receipt"}
}
