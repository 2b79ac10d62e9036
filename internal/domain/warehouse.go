package domain

// StaffIdentity is the distinguished identity that may query every
// warehouse.
const StaffIdentity = "uni_staff"

// Warehouses is the canonical warehouse code list. Order matters: policy
// results and UI listings follow it.
var Warehouses = []string{
	"JFK", "EWR", "PHL", "DCA", "BOS", "RDU", "CLT",
	"BUF", "RIC", "PIT", "MDT", "ALB", "SYR", "PWM",
}

// IsKnownWarehouse reports whether code is in the canonical list.
func IsKnownWarehouse(code string) bool {
	for _, w := range Warehouses {
		if w == code {
			return true
		}
	}
	return false
}

// VisibleWarehouses derives the warehouse scope for an identity.
//
// A recognized warehouse-code identity sees only its own warehouse. The
// staff identity and an absent identity see the full list. An unrecognized
// identity also falls back to the full list; this permissive default matches
// the upstream system's observed behavior and is deliberately left as-is.
//
// Pure function: re-evaluated on every call, never cached across identity
// changes.
func VisibleWarehouses(identity string) []string {
	if identity == "" || identity == StaffIdentity {
		return append([]string(nil), Warehouses...)
	}
	if IsKnownWarehouse(identity) {
		return []string{identity}
	}
	return append([]string(nil), Warehouses...)
}

// CanAccessWarehouse reports whether the identity's scope includes code.
func CanAccessWarehouse(identity, code string) bool {
	for _, w := range VisibleWarehouses(identity) {
		if w == code {
			return true
		}
	}
	return false
}
