package shared

// Expense permissions.
const (
	AreaExpenses = "expenses"

	PermViewExpense = "expenses.view_expense"
	PermAddExpense  = "expenses.add_expense"
)

// ExpensesModels lists models exposed by the expenses area.
func ExpensesModels() []string {
	return []string{"expense"}
}
