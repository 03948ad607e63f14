package api

// RunInfo summarizes one backtest run.
type RunInfo struct {
	ID          string   `json:"id"`
	StartedAt   int64    `json:"startedAt"`
	Ticks       int      `json:"ticks"`
	FillCount   int      `json:"fillCount"`
	FinalCash   float64  `json:"finalCash"`
	FinalEquity *float64 `json:"finalEquity"` // null when the final valuation was undefined
	Instruments []string `json:"instruments"`
}

// EquityEntry is one tick of a run's equity curve. Equity is null for ticks
// where the valuation was undefined (distinct from a real zero).
type EquityEntry struct {
	Timestamp int64    `json:"timestamp"`
	Equity    *float64 `json:"equity"`
}

// FillInfo is one journaled execution.
type FillInfo struct {
	Timestamp  int64   `json:"timestamp"`
	Instrument string  `json:"instrument"`
	Price      float64 `json:"price"`
	Qty        int64   `json:"qty"`
}

// EquityUpdate streams one equity point over WebSocket while a run is live.
type EquityUpdate struct {
	Type      string   `json:"type"` // always "equity"
	RunID     string   `json:"runId"`
	Timestamp int64    `json:"timestamp"`
	Equity    *float64 `json:"equity"`
}

// WSSubscribeRequest is the client -> server subscription message.
type WSSubscribeRequest struct {
	Op       string   `json:"op"` // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
