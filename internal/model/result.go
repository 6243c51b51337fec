package model

// AccrualResult is the annualized yield of one market, in percent.
type AccrualResult struct {
	MarketID    string  `json:"market_id"`
	BorrowAPY   float64 `json:"borrow_apy"`
	SupplyAPY   float64 `json:"supply_apy"`
	Utilization float64 `json:"utilization"`
	LoanToken   string  `json:"loan_token"`
	// Accrued totals in loan-token base units.
	TotalSupply string  `json:"total_supply"`
	TotalBorrow string  `json:"total_borrow"`
	Block       uint64  `json:"block"`
	Timestamp   uint64  `json:"timestamp"`
}

// MarketFailure records why one market could not be evaluated.
type MarketFailure struct {
	MarketID string `json:"market_id"`
	Err      error  `json:"-"`
}

// Report collects the outcome of a multi-market evaluation. Results keep the
// input order; markets with a different loan token appear in neither list.
type Report struct {
	Results  []AccrualResult
	Failures []MarketFailure
}

// SourceYield is the normalized yield of one comparison protocol, in percent.
type SourceYield struct {
	Source    string  `json:"source"`
	Reserve   string  `json:"reserve,omitempty"`
	SupplyAPY float64 `json:"supply_apy"`
	BorrowAPY float64 `json:"borrow_apy"`
}
