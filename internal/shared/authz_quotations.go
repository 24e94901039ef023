package shared

// Quotation permissions.
const (
	AreaQuotations = "quotations"

	PermViewQuotation   = "quotations.view_quotation"
	PermAddQuotation    = "quotations.add_quotation"
	PermChangeQuotation = "quotations.change_quotation"
)

// QuotationsModels lists models exposed by the quotations area.
func QuotationsModels() []string {
	return []string{"quotation"}
}
