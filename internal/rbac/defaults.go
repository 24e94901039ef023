package rbac

import "github.com/mycrm-app/mycrm/internal/shared"

// defaultRole describes one entry of the bootstrap role catalog. Tokens may
// be exact "<area>.<codename>" permissions, "<area>.*" wildcards, or the
// bare "*" reserved for the top-level administrative role. ViewerModels, when
// set, assembles whatever view_<model> permissions the catalog exposes for
// the listed models instead of a fixed token list.
type defaultRole struct {
	Type         RoleType
	Name         string
	Description  string
	Tokens       []string
	ViewerModels []string
}

// defaultRoles is the literal catalog provisioned at bootstrap.
func defaultRoles() []defaultRole {
	return []defaultRole{
		{
			Type:        RoleSuperAdmin,
			Name:        "Super Admin",
			Description: "Full system access with ability to manage all companies and users",
			Tokens:      []string{"*"},
		},
		{
			Type:        RoleCompanyAdmin,
			Name:        "Company Admin",
			Description: "Full access within their company",
			Tokens: []string{
				shared.PermAddUser,
				shared.PermChangeUser,
				shared.PermViewUser,
				shared.PermAddCompanyProfile,
				shared.PermChangeCompanyProfile,
				shared.PermViewCompanyProfile,
				shared.AreaInventory + ".*",
				shared.AreaInvoices + ".*",
				shared.AreaQuotations + ".*",
				shared.AreaJobOrders + ".*",
				shared.AreaReceipts + ".*",
				shared.AreaWaybills + ".*",
				shared.AreaClients + ".*",
				shared.AreaExpenses + ".*",
				shared.AreaAccounting + ".*",
			},
		},
		{
			Type:        RoleManager,
			Name:        "Manager",
			Description: "Management access to most company operations",
			Tokens: []string{
				shared.PermViewProduct,
				shared.PermAddProduct,
				shared.PermChangeProduct,
				shared.PermViewInvoice,
				shared.PermAddInvoice,
				shared.PermChangeInvoice,
				shared.PermViewQuotation,
				shared.PermAddQuotation,
				shared.PermChangeQuotation,
				shared.PermViewJobOrder,
				shared.PermAddJobOrder,
				shared.PermChangeJobOrder,
				shared.PermViewClient,
				shared.PermAddClient,
				shared.PermChangeClient,
				shared.PermViewReceipt,
				shared.PermAddReceipt,
				shared.PermViewWaybill,
				shared.PermAddWaybill,
			},
		},
		{
			Type:        RoleProductionManager,
			Name:        "Production Manager",
			Description: "Access to production-related operations",
			Tokens: []string{
				shared.PermViewProduct,
				shared.PermAddProduct,
				shared.PermChangeProduct,
				shared.PermViewJobOrder,
				shared.PermAddJobOrder,
				shared.PermChangeJobOrder,
				shared.PermViewWaybill,
				shared.PermAddWaybill,
				shared.PermViewClient,
			},
		},
		{
			Type:        RoleAccountant,
			Name:        "Accountant",
			Description: "Access to financial operations",
			Tokens: []string{
				shared.PermViewInvoice,
				shared.PermAddInvoice,
				shared.PermChangeInvoice,
				shared.PermViewReceipt,
				shared.PermAddReceipt,
				shared.PermViewClient,
				shared.AreaAccounting + ".*",
			},
		},
		{
			Type:        RoleMarketer,
			Name:        "Marketer",
			Description: "Access to sales and client-facing operations",
			Tokens: []string{
				shared.PermViewClient,
				shared.PermAddClient,
				shared.PermChangeClient,
				shared.PermViewQuotation,
				shared.PermAddQuotation,
				shared.PermChangeQuotation,
				shared.PermViewInvoice,
				shared.PermAddInvoice,
			},
		},
		{
			Type:        RoleStoreKeeper,
			Name:        "Store Keeper",
			Description: "Access to inventory management",
			Tokens: []string{
				shared.PermViewProduct,
				shared.PermAddProduct,
				shared.PermChangeProduct,
				shared.PermViewStockMovement,
				shared.PermAddStockMovement,
				shared.PermViewWaybill,
				shared.PermAddWaybill,
			},
		},
		{
			Type:         RoleViewer,
			Name:         "Viewer",
			Description:  "Read-only access to business documents",
			ViewerModels: shared.DocumentModels(),
		},
	}
}
