package availability

import "strings"

// Production service ids for the Phoenix Encanto location.
const (
	ServiceHaircutStandard = "f9160450-0b51-4ddc-bcc7-ac150103d5c0"
	ServiceSkinFade        = "14000cb7-a5bb-4a26-9f23-b0f3016cc009"
	ServiceLongLocks       = "721e907d-fdae-41a5-bec4-ac150104229b"
	ServiceWash            = "67c644bc-237f-4794-8b48-ac150106d5ae"
	ServiceGrooming        = "65ee2a0d-e995-4d8d-a286-ac150106994b"
)

// DefaultServiceTable maps spoken service names to provider ids.
func DefaultServiceTable() map[string]string {
	return map[string]string{
		"haircut_standard":  ServiceHaircutStandard,
		"haircut standard":  ServiceHaircutStandard,
		"standard":          ServiceHaircutStandard,
		"haircut":           ServiceHaircutStandard,
		"haircut_skin_fade": ServiceSkinFade,
		"skin_fade":         ServiceSkinFade,
		"skin fade":         ServiceSkinFade,
		"fade":              ServiceSkinFade,
		"long_locks":        ServiceLongLocks,
		"long locks":        ServiceLongLocks,
		"wash":              ServiceWash,
		"shampoo":           ServiceWash,
		"grooming":          ServiceGrooming,
		"beard":             ServiceGrooming,
		"beard_trim":        ServiceGrooming,
	}
}

// ServiceResolver turns add-on names into provider service ids.
type ServiceResolver struct {
	table map[string]string
}

// NewServiceResolver builds a resolver over table. Keys are normalized the same
// way inputs are. A nil or empty table falls back to DefaultServiceTable.
func NewServiceResolver(table map[string]string) *ServiceResolver {
	if len(table) == 0 {
		table = DefaultServiceTable()
	}
	normalized := make(map[string]string, len(table))
	for name, id := range table {
		normalized[normalizeServiceName(name)] = id
	}
	return &ServiceResolver{table: normalized}
}

// Resolve maps one input to an id. Inputs that already look like ids (contain
// a hyphen and are longer than 30 characters) pass through unchanged.
func (r *ServiceResolver) Resolve(input string) (string, bool) {
	if input == "" {
		return "", false
	}
	if looksLikeServiceID(input) {
		return input, true
	}
	id, ok := r.table[normalizeServiceName(input)]
	return id, ok
}

// ResolveAll resolves inputs in order, dropping unknown names and repeated ids.
func (r *ServiceResolver) ResolveAll(inputs []string) []string {
	out := make([]string, 0, len(inputs))
	seen := make(map[string]struct{}, len(inputs))
	for _, in := range inputs {
		id, ok := r.Resolve(in)
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func looksLikeServiceID(s string) bool {
	return strings.Contains(s, "-") && len(s) > 30
}

func normalizeServiceName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
