package models

// Requests for analysis HTTP endpoints. Defined in domain for consistency and reuse.

type AnalysisRequest struct {
	Symbol   string `query:"symbol" json:"symbol" validate:"required,max=20,ticker"`
	Interval string `query:"interval" json:"interval" default:"1d" validate:"oneof=1h 1d 1wk"`
	Lookback int    `query:"lookback" json:"lookback" default:"252" validate:"gte=1,lte=5000"`
	Compact  bool   `query:"compact" json:"compact"`
}

type AnalyzeBarsRequest struct {
	Symbol string     `json:"symbol" validate:"required,max=20,ticker"`
	Bars   []PriceBar `json:"bars" validate:"required,min=1,max=10000"`
}

type ScreenRequest struct {
	Symbols  string `query:"symbols" json:"symbols" validate:"required,tickers"`
	Interval string `query:"interval" json:"interval" default:"1d" validate:"oneof=1h 1d 1wk"`
	Lookback int    `query:"lookback" json:"lookback" default:"252" validate:"gte=30,lte=2000"`
}

type BarsRequest struct {
	Symbol   string `query:"symbol" json:"symbol" validate:"required,max=20,ticker"`
	Interval string `query:"interval" json:"interval" default:"1d" validate:"oneof=1h 1d 1wk"`
	From     string `query:"from" json:"from"`
	To       string `query:"to" json:"to"`
	Limit    int    `query:"limit" json:"limit" default:"1000" validate:"gte=1,lte=50000"`
}

// AnalysisRequestEvent is the payload consumed from the analysis-requests topic.
type AnalysisRequestEvent struct {
	RequestID string `json:"request_id"`
	Ticker    string `json:"ticker" validate:"required,max=20,ticker"`
	Interval  string `json:"interval" default:"1d" validate:"oneof=1h 1d 1wk"`
	Lookback  int    `json:"lookback" default:"252" validate:"gte=1,lte=5000"`
}
