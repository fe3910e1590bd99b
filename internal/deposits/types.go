package deposits

import "time"

// Status of a deposit
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
)

// Authorization is the result of an authorization payment check
type Authorization struct {
	Address    string    `json:"address"`
	Authorized bool      `json:"authorized"`
	TxHash     string    `json:"txHash,omitempty"`
	Amount     float64   `json:"amount,omitempty"`
	PaidAt     time.Time `json:"paidAt"`
}

// Access is the state of a wallet's paid access
type Access struct {
	Address       string    `json:"address"`
	Active        bool      `json:"active"`
	Payments      int       `json:"payments"`
	TotalPaid     float64   `json:"totalPaid"`
	Days          int       `json:"days"`
	LastPaymentAt time.Time `json:"lastPaymentAt"`
	ExpiresAt     time.Time `json:"expiresAt"`
	DaysRemaining int       `json:"daysRemaining"`
}

// Deposit is a plan payment found on chain
type Deposit struct {
	TxHash         string    `json:"txHash"`
	PlanID         string    `json:"planId"`
	PlanName       string    `json:"planName"`
	Currency       Currency  `json:"currency"`
	Amount         float64   `json:"amount"`
	AmountUSD      float64   `json:"amountUsd"`
	Percentage     float64   `json:"percentage"`
	Days           int       `json:"days"`
	BlockNumber    uint64    `json:"blockNumber"`
	StartedAt      time.Time `json:"startedAt"`
	EndsAt         time.Time `json:"endsAt"`
	Status         Status    `json:"status"`
	DaysRemaining  int       `json:"daysRemaining"`
	ExpectedProfit float64   `json:"expectedProfit"`
	TotalReturn    float64   `json:"totalReturn"`
}

// DepositStats summarizes a wallet's deposits
type DepositStats struct {
	Address           string  `json:"address"`
	Total             int     `json:"total"`
	Active            int     `json:"active"`
	Completed         int     `json:"completed"`
	TotalInvestedUSD  float64 `json:"totalInvestedUsd"`
	ActiveUSD         float64 `json:"activeUsd"`
	ExpectedProfitUSD float64 `json:"expectedProfitUsd"`
	TotalReturnUSD    float64 `json:"totalReturnUsd"`
}

// LimitCheck is the answer to "may this wallet deposit that much more"
type LimitCheck struct {
	Address      string  `json:"address"`
	Allowed      bool    `json:"allowed"`
	ActiveUSD    float64 `json:"activeUsd"`
	RequestedUSD float64 `json:"requestedUsd"`
	MaxUSD       float64 `json:"maxUsd"`
	AvailableUSD float64 `json:"availableUsd"`
}
