package models

// Actor is the authenticated caller, as supplied by the upstream identity
// provider. The core trusts these values and only performs ownership
// checks against them.
type Actor struct {
	ID   string
	Role string
}
