// Package model defines the domain records shared across the application.
package model

// GeoIdentifier is a hierarchical FIPS identifier for a point: state (2
// digits), county (3), tract (6), and optionally block (4). It is created
// per lookup and never persisted on its own.
type GeoIdentifier struct {
	State  string `json:"state"`
	County string `json:"county"`
	Tract  string `json:"tract"`
	Block  string `json:"block,omitempty"`
}

// TractKey returns the 11-character state+county+tract key.
func (g GeoIdentifier) TractKey() string {
	return g.State + g.County + g.Tract
}

// BlockKey returns the 15-character block key, or "" when no block was
// resolved.
func (g GeoIdentifier) BlockKey() string {
	if g.Block == "" {
		return ""
	}
	return g.TractKey() + g.Block
}

// HasBlock reports whether block-level geography was resolved.
func (g GeoIdentifier) HasBlock() bool { return g.Block != "" }
