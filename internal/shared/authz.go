package shared

// PermissionArea describes one resource area and the business models it
// exposes. The permission catalog derives add/change/delete/view codenames
// for every model listed here.
type PermissionArea struct {
	Area   string
	Models []string
}

// PermissionAreas lists every resource area the permission catalog is built
// from. Order matters only for deterministic sync output.
func PermissionAreas() []PermissionArea {
	return []PermissionArea{
		{Area: AreaAccounts, Models: AccountsModels()},
		{Area: AreaCore, Models: CoreModels()},
		{Area: AreaInventory, Models: InventoryModels()},
		{Area: AreaInvoices, Models: InvoicesModels()},
		{Area: AreaQuotations, Models: QuotationsModels()},
		{Area: AreaJobOrders, Models: JobOrdersModels()},
		{Area: AreaReceipts, Models: ReceiptsModels()},
		{Area: AreaWaybills, Models: WaybillsModels()},
		{Area: AreaClients, Models: ClientsModels()},
		{Area: AreaExpenses, Models: ExpensesModels()},
		{Area: AreaAccounting, Models: AccountingModels()},
	}
}

// DocumentModels lists the business-document models whose view permissions
// make up the read-only viewer role.
func DocumentModels() []string {
	return []string{
		"product",
		"invoice",
		"quotation",
		"joborder",
		"receipt",
		"waybill",
		"client",
		"expense",
	}
}
