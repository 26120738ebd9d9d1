package model

import (
	"encoding/json"
	"time"
)

// User is a simulation player, looked up by unique username.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	LastLogin time.Time `json:"last_login"`
}

// Location describes where a simulated business operates.
type Location struct {
	Address      string  `json:"address"`
	Neighborhood string  `json:"neighborhood"`
	County       string  `json:"county"`
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
}

// Session is a user's active simulation. A user has at most one; creating a
// new one replaces the old session and cascades away its monthly history.
// CurrentMonth/CurrentYear track the most recently saved month.
type Session struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	BusinessName  string    `json:"business_name"`
	BusinessType  string    `json:"business_type"`
	Industry      string    `json:"industry"`
	Location      Location  `json:"location"`
	InitialBudget float64   `json:"initial_budget"`
	CurrentMonth  int       `json:"current_month"`
	CurrentYear   int       `json:"current_year"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Financials is the numeric core of a monthly snapshot.
type Financials struct {
	Revenue     float64 `json:"revenue"`
	Profit      float64 `json:"profit"`
	Customers   int     `json:"customers"`
	CashBalance float64 `json:"cashBalance"`
}

// AgentOutputs carries the narrative payloads produced for one month. Each
// field is opaque JSON from the agents service; any of them may be null when
// the producing call failed or was skipped.
type AgentOutputs struct {
	MarketContext   json.RawMessage `json:"marketContext,omitempty"`
	EventsData      json.RawMessage `json:"eventsData,omitempty"`
	TrendsData      json.RawMessage `json:"trendsData,omitempty"`
	SupplierData    json.RawMessage `json:"supplierData,omitempty"`
	CompetitionData json.RawMessage `json:"competitionData,omitempty"`
	EmployeeData    json.RawMessage `json:"employeeData,omitempty"`
	CustomerData    json.RawMessage `json:"customerData,omitempty"`
	FinancialData   json.RawMessage `json:"financialData,omitempty"`
}

// MonthlyState is one persisted snapshot of a session for a specific
// (month, year). Unique on (session, month, year): saving the same month
// again updates the row in place.
type MonthlyState struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Month     int       `json:"month"`
	Year      int       `json:"year"`

	Financials Financials   `json:"financials"`
	Agents     AgentOutputs `json:"agents"`

	PlayerDecisions json.RawMessage `json:"player_decisions,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}
