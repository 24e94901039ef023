package shared

// Inventory permissions.
const (
	AreaInventory = "inventory"

	PermViewProduct       = "inventory.view_product"
	PermAddProduct        = "inventory.add_product"
	PermChangeProduct     = "inventory.change_product"
	PermViewStockMovement = "inventory.view_stockmovement"
	PermAddStockMovement  = "inventory.add_stockmovement"
)

// InventoryModels lists models exposed by the inventory area.
func InventoryModels() []string {
	return []string{"product", "stockmovement"}
}
