package catalog

// Permission represents an atomic capability, namespaced by resource area.
type Permission struct {
	ID       int64
	Area     string
	Codename string
	Name     string
}

// Qualified returns the fully qualified "<area>.<codename>" token.
func (p Permission) Qualified() string {
	return p.Area + "." + p.Codename
}
