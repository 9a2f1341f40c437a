package domain

import "time"

// StatusCount is one bucket of a group-by-status aggregation.
type StatusCount struct {
	Status string `json:"status" db:"status"`
	Count  int64  `json:"count" db:"count"`
}

type RevenueSummary struct {
	From             time.Time `json:"from"`
	To               time.Time `json:"to"`
	Transactions     int64     `json:"transactions" db:"transactions"`
	ContractedAmount int64     `json:"contracted_amount" db:"contracted_amount"`
	PaidAmount       int64     `json:"paid_amount" db:"paid_amount"`
	RemainingAmount  int64     `json:"remaining_amount" db:"remaining_amount"`
}

type MonthlyRevenue struct {
	Month      int   `json:"month" db:"month"`
	PaidAmount int64 `json:"paid_amount" db:"paid_amount"`
}

// Occupancy excludes assets under maintenance from the rentable base.
type Occupancy struct {
	RentableAssets int64   `json:"rentable_assets"`
	RentedAssets   int64   `json:"rented_assets"`
	Rate           float64 `json:"rate"`
}
