package authz

import "fmt"

// Permission names are "resource:action" strings. The full set is closed:
// catalog rows loaded from the database are validated against this list so a
// typo in seed data fails at startup instead of silently never matching.
const (
	PermCustomersView   = "customers:view"
	PermCustomersCreate = "customers:create"
	PermCustomersUpdate = "customers:update"
	PermCustomersDelete = "customers:delete"

	PermLoansView     = "loans:view"
	PermLoansCreate   = "loans:create"
	PermLoansUpdate   = "loans:update"
	PermLoansDelete   = "loans:delete"
	PermLoansApprove  = "loans:approve"
	PermLoansDisburse = "loans:disburse"

	PermRepaymentsView   = "repayments:view"
	PermRepaymentsRecord = "repayments:record"

	PermTransactionsView   = "transactions:view"
	PermTransactionsCreate = "transactions:create"
	PermTransactionsUpdate = "transactions:update"
	PermTransactionsDelete = "transactions:delete"

	PermBankAccountsView   = "bank_accounts:view"
	PermBankAccountsCreate = "bank_accounts:create"
	PermBankAccountsUpdate = "bank_accounts:update"
	PermBankAccountsDelete = "bank_accounts:delete"

	PermUsersView        = "users:view"
	PermUsersAssignRoles = "users:assign_roles"

	PermRolesView   = "roles:view"
	PermRolesManage = "roles:manage"

	PermDashboardView           = "dashboard:view"
	PermDashboardViewFinancials = "dashboard:view_financials"

	PermOrganizationsManage = "organizations:manage"
)

var knownPermissions = map[string]struct{}{
	PermCustomersView:           {},
	PermCustomersCreate:         {},
	PermCustomersUpdate:         {},
	PermCustomersDelete:         {},
	PermLoansView:               {},
	PermLoansCreate:             {},
	PermLoansUpdate:             {},
	PermLoansDelete:             {},
	PermLoansApprove:            {},
	PermLoansDisburse:           {},
	PermRepaymentsView:          {},
	PermRepaymentsRecord:        {},
	PermTransactionsView:        {},
	PermTransactionsCreate:      {},
	PermTransactionsUpdate:      {},
	PermTransactionsDelete:      {},
	PermBankAccountsView:        {},
	PermBankAccountsCreate:      {},
	PermBankAccountsUpdate:      {},
	PermBankAccountsDelete:      {},
	PermUsersView:               {},
	PermUsersAssignRoles:        {},
	PermRolesView:               {},
	PermRolesManage:             {},
	PermDashboardView:           {},
	PermDashboardViewFinancials: {},
	PermOrganizationsManage:     {},
}

// IsKnownPermission reports whether name is part of the closed permission set.
func IsKnownPermission(name string) bool {
	_, ok := knownPermissions[name]
	return ok
}

// ValidateCatalog checks every catalog entry against the closed permission
// set. Called once at startup after the catalog is loaded.
func ValidateCatalog(names []string) error {
	for _, name := range names {
		if !IsKnownPermission(name) {
			return fmt.Errorf("unknown permission in catalog: %q", name)
		}
	}
	return nil
}
