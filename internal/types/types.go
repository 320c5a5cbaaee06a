package types

// Candle is one OHLCV observation for a fixed time bucket. Series are ordered
// ascending by Ts and immutable once fetched for a cycle.
type Candle struct {
	Ts                     int64
	Open, High, Low, Close float64
	Volume                 int64
}

// IndicatorSet carries the derived values for one candle row. Rows inside an
// indicator's warm-up window hold NaN for that field and must not be consumed;
// only the final row of a validated series is guaranteed fully defined.
type IndicatorSet struct {
	MAShort, MAMedium, MALong float64
	RSI                       float64
	MACDHist                  float64
	ATR                       float64
	VolumeRatio               float64
}

// KeyLevels are the rolling high/low reference points over the configured
// lookback window.
type KeyLevels struct {
	High, Low float64
}

const (
	ActionBuy  = "BUY"
	ActionSell = "SELL"
	ActionWait = "WAIT"
)

// Decision is the validated outcome of one reasoning call. It lives for a
// single cycle and is discarded afterwards.
type Decision struct {
	Action     string  `json:"action" validate:"required,oneof=BUY SELL WAIT"`
	Confidence int     `json:"confidence" validate:"min=0,max=100"`
	Entry      float64 `json:"entry,omitempty" validate:"omitempty,gt=0"`
	StopLoss   float64 `json:"stop_loss,omitempty" validate:"omitempty,gt=0"`
	Reason     string  `json:"reason,omitempty"`
}

// Mode tags where an OrderIntent may be routed.
type Mode string

const (
	ModeSandbox Mode = "sandbox"
	ModeLive    Mode = "live"
)

// OrderIntent is the gated, executable form of a Decision.
type OrderIntent struct {
	Symbol   string  `json:"symbol"`
	Action   string  `json:"action"`
	Qty      int     `json:"qty"`
	Entry    float64 `json:"entry"`
	StopLoss float64 `json:"stop_loss"`
	Mode     Mode    `json:"mode"`
}

// CycleState names a position in the per-cycle state machine.
type CycleState string

const (
	StateFetching         CycleState = "FETCHING"
	StateValidating       CycleState = "VALIDATING"
	StateComputing        CycleState = "COMPUTING_INDICATORS"
	StateBuildingPayload  CycleState = "BUILDING_PAYLOAD"
	StateAwaitingDecision CycleState = "AWAITING_DECISION"
	StateParsing          CycleState = "PARSING"
	StateGating           CycleState = "GATING"
	StateExecuting        CycleState = "EXECUTING"
	StateSuppressed       CycleState = "SUPPRESSED"
	StateCycleFailed      CycleState = "CYCLE_FAILED"
)

// CycleResult summarizes one analysis cycle. FailedAt records the state the
// cycle was in when it aborted; it is empty for successful cycles.
type CycleResult struct {
	Symbol       string       `json:"symbol"`
	State        CycleState   `json:"state"`
	FailedAt     CycleState   `json:"failed_at,omitempty"`
	Price        float64      `json:"price,omitempty"`
	Time         int64        `json:"time,omitempty"`
	Decision     Decision     `json:"decision"`
	Intent       *OrderIntent `json:"intent,omitempty"`
	OrderID      string       `json:"order_id,omitempty"`
	SuppressedBy string       `json:"suppressed_by,omitempty"`

	// Analysis holds the raw reasoning text for notification; it is not
	// part of the serialized result.
	Analysis string `json:"-"`
}
