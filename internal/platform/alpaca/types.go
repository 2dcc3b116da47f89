package alpaca

// trade is a single trade record from the market data API.
type trade struct {
	Price     float64 `json:"p"`
	Timestamp string  `json:"t"`
}

// bar is an aggregated OHLCV bar.
type bar struct {
	Open      float64 `json:"o"`
	High      float64 `json:"h"`
	Low       float64 `json:"l"`
	Close     float64 `json:"c"`
	Volume    float64 `json:"v"`
	Timestamp string  `json:"t"`
}

// snapshot is the per-symbol payload of the batch snapshots endpoint.
type snapshot struct {
	LatestTrade *trade `json:"latestTrade"`
	DailyBar    *bar   `json:"dailyBar"`
	PrevDaily   *bar   `json:"prevDailyBar"`
}

// barsResponse is the payload of the historical bars endpoint.
type barsResponse struct {
	Bars          []bar  `json:"bars"`
	Symbol        string `json:"symbol"`
	NextPageToken string `json:"next_page_token"`
}

// errorResponse is the JSON error body returned on non-2xx statuses.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
