package dto

// EscrowStateStats aggregates escrows sharing a state.
type EscrowStateStats struct {
	State  string   `json:"state"`
	Count  int      `json:"count"`
	Funded MoneyDTO `json:"funded"`
}

type AdminStats struct {
	Escrows         []EscrowStateStats `json:"escrows"`
	PendingRefunds  int                `json:"pending_refunds"`
	OpenDisputes    int                `json:"open_disputes"`
	PlatformBalance MoneyDTO           `json:"platform_balance"`
	PlatformEarned  MoneyDTO           `json:"platform_earned"`
}
