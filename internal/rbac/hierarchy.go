package rbac

// roleRanks orders role types for "manager-or-above" style checks. Role types
// absent from the map (currently viewer) rank 0, the same as holding no role.
var roleRanks = map[RoleType]int{
	RoleSuperAdmin:        7,
	RoleCompanyAdmin:      6,
	RoleManager:           5,
	RoleProductionManager: 4,
	RoleAccountant:        3,
	RoleMarketer:          2,
	RoleStoreKeeper:       1,
}

// Rank returns the hierarchy rank of a role type. Unknown role types are a
// caller error and signal ErrRoleNotFound; only absence of assignments yields
// rank 0 implicitly.
func Rank(t RoleType) (int, error) {
	if !t.Valid() {
		return 0, ErrRoleNotFound
	}
	return roleRanks[t], nil
}

// maxRank returns the highest rank among the given assignments.
func maxRank(assignments []Assignment) int {
	highest := 0
	for _, a := range assignments {
		if rank := roleRanks[a.RoleType]; rank > highest {
			highest = rank
		}
	}
	return highest
}
