package shared

// Invoicing permissions.
const (
	AreaInvoices = "invoices"

	PermViewInvoice   = "invoices.view_invoice"
	PermAddInvoice    = "invoices.add_invoice"
	PermChangeInvoice = "invoices.change_invoice"
)

// InvoicesModels lists models exposed by the invoices area.
func InvoicesModels() []string {
	return []string{"invoice"}
}
