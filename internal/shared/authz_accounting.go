package shared

// Accounting permissions.
const (
	AreaAccounting = "accounting"

	PermViewAccount     = "accounting.view_account"
	PermViewLedgerEntry = "accounting.view_ledgerentry"
)

// AccountingModels lists models exposed by the accounting area.
func AccountingModels() []string {
	return []string{"account", "ledgerentry"}
}
