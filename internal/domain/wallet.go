package domain

// Wallet tracks an agent's simulated capital.
// Funds >= 0 is not enforced here; the risk governor checks it.
type Wallet struct {
	Funds         float64 // Available quote currency
	Quantity      float64 // Base currency held
	InitialFunds  float64
	HighWaterMark float64 // Funds before last drawdown check
}

// NewWallet creates a wallet holding funds and no position.
func NewWallet(funds float64) Wallet {
	return Wallet{
		Funds:         funds,
		InitialFunds:  funds,
		HighWaterMark: funds,
	}
}

// Equity values the wallet at price.
func (w Wallet) Equity(price float64) float64 {
	return w.Funds + w.Quantity*price
}
