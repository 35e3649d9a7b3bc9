package models

import "time"

// KiteToken is the broker's response to a request-token exchange.
type KiteToken struct {
	AccessToken string    `json:"access_token"`
	PublicToken string    `json:"public_token"`
	UserID      string    `json:"user_id"` // broker-side account id
	LoginTime   time.Time `json:"login_time"`
}

// KiteHolding is one holding row as returned by the broker's holdings
// endpoint, before normalization into the canonical Holding shape.
type KiteHolding struct {
	TradingSymbol     string  `json:"tradingsymbol"`
	Exchange          string  `json:"exchange"`
	ISIN              string  `json:"isin"`
	Quantity          float64 `json:"quantity"`
	AveragePrice      float64 `json:"average_price"`
	LastPrice         float64 `json:"last_price"`
	Product           string  `json:"product"`
	CollateralQuantity float64 `json:"collateral_quantity"`
}
