package domain

// Ticker represents a listed equity tracked by the screener.
// Corresponds to the tickers table.
type Ticker struct {
	ID          int64
	Symbol      string // e.g. "AAPL"
	Exchange    string // e.g. "NASDAQ"
	CompanyName string
	IsActive    bool
}
