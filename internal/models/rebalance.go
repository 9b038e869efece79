// Package models defines data structures for Stakd
package models

import "time"

// StrategyKind selects the rebalance trigger logic
type StrategyKind string

const (
	StrategyThreshold          StrategyKind = "threshold"
	StrategyCalendar           StrategyKind = "calendar"
	StrategyPercentOfPortfolio StrategyKind = "percent-of-portfolio"
	StrategyRiskParity         StrategyKind = "risk-parity"
	StrategyDCAWeighted        StrategyKind = "dca-weighted"
)

// DefaultStrategy is used when the setting is absent or unrecognized.
const DefaultStrategy = StrategyPercentOfPortfolio

// ParseStrategy maps a raw setting value to a StrategyKind, falling back
// to DefaultStrategy for anything unrecognized.
func ParseStrategy(raw string) StrategyKind {
	switch StrategyKind(raw) {
	case StrategyThreshold, StrategyCalendar, StrategyPercentOfPortfolio,
		StrategyRiskParity, StrategyDCAWeighted:
		return StrategyKind(raw)
	}
	return DefaultStrategy
}

// RebalanceInterval is the calendar strategy window
type RebalanceInterval string

const (
	IntervalWeekly    RebalanceInterval = "weekly"
	IntervalMonthly   RebalanceInterval = "monthly"
	IntervalQuarterly RebalanceInterval = "quarterly"
)

// SuggestionAction is what the engine recommends for one target
type SuggestionAction string

const (
	ActionBuy  SuggestionAction = "buy"
	ActionSell SuggestionAction = "sell"
	ActionHold SuggestionAction = "hold"
)

// RebalanceSettings is the typed form of the vault's settings map. Every
// field has a documented default; parsing never fails.
type RebalanceSettings struct {
	HoldZonePercent               float64           `json:"holdZonePercent"`
	MinTradeUsd                   float64           `json:"minTradeUsd"`
	BuyOnlyMode                   bool              `json:"buyOnlyMode"`
	NewCashUsd                    float64           `json:"newCashUsd"`
	CashReserveUsd                float64           `json:"cashReserveUsd"`
	CashReservePercent            float64           `json:"cashReservePercent"`
	DustThresholdUsd              float64           `json:"dustThresholdUsd"`
	SlippagePercent               float64           `json:"slippagePercent"`
	TradingFeePercent             float64           `json:"tradingFeePercent"`
	ConcentrationThresholdPercent float64           `json:"concentrationThresholdPercent"`
	ExcludeStablecoinsFromConc    bool              `json:"excludeStablecoinsFromConcentration"`
	TreatStablecoinsAsCash        bool              `json:"treatStablecoinsAsCashReserve"`
	Strategy                      StrategyKind      `json:"rebalanceStrategy"`
	Interval                      RebalanceInterval `json:"rebalanceInterval"`
	PortfolioChangeThreshold      float64           `json:"portfolioChangeThreshold"`
	RiskParityLookbackDays        int               `json:"riskParityLookbackDays"`
	DCASplitCount                 int               `json:"dcaSplitCount"`
	DCAIntervalDays               int               `json:"dcaIntervalDays"`
	LastRebalanceDate             time.Time         `json:"lastRebalanceDate,omitempty"` // zero when unset or unparseable
}

// Suggestion is one row of rebalance advice for a merged target or an
// untargeted position
type Suggestion struct {
	TokenSymbol       string           `json:"tokenSymbol"` // symbol or group name
	CoingeckoID       string           `json:"coingeckoId,omitempty"`
	IsGroup           bool             `json:"isGroup,omitempty"`
	Action            SuggestionAction `json:"action"`
	CurrentValue      float64          `json:"currentValue"`
	CurrentPercent    float64          `json:"currentPercent"`
	TargetPercent     float64          `json:"targetPercent"`
	TargetValue       float64          `json:"targetValue"`
	Deviation         float64          `json:"deviation"` // currentPercent − targetPercent
	Amount            float64          `json:"amount"`    // USD to trade, 0 for holds
	EstimatedSlippage float64          `json:"estimatedSlippage"`
	EstimatedFee      float64          `json:"estimatedFee"`
	NetAmount         float64          `json:"netAmount"` // amount ± slippage and fee by side
	PortfolioImpact   float64          `json:"portfolioImpact,omitempty"` // percent-of-portfolio strategy only
	IsDust            bool             `json:"isDust"`
	IsUntargeted      bool             `json:"isUntargeted,omitempty"`
}

// RiskParityTarget reports the volatility-adjusted allocation actually used
type RiskParityTarget struct {
	TokenSymbol     string  `json:"tokenSymbol"`
	OriginalPercent float64 `json:"originalPercent"`
	AdjustedPercent float64 `json:"adjustedPercent"`
	Volatility      float64 `json:"volatility"`
}

// DCATrade is one trade inside a DCA chunk
type DCATrade struct {
	TokenSymbol       string           `json:"tokenSymbol"`
	Action            SuggestionAction `json:"action"`
	Amount            float64          `json:"amount"`
	EstimatedSlippage float64          `json:"estimatedSlippage"`
	EstimatedFee      float64          `json:"estimatedFee"`
	NetAmount         float64          `json:"netAmount"`
}

// DCAChunk schedules one slice of the split rebalance
type DCAChunk struct {
	Index       int        `json:"index"` // 0-based
	ScheduledAt time.Time  `json:"scheduledAt"`
	Trades      []DCATrade `json:"trades"`
}

// ExecutionStep is one ordered step of the suggested trade sequence.
// Sells come first so buys are funded.
type ExecutionStep struct {
	Step              int              `json:"step"` // 1-based
	TokenSymbol       string           `json:"tokenSymbol"`
	Action            SuggestionAction `json:"action"`
	Amount            float64          `json:"amount"`
	EstimatedSlippage float64          `json:"estimatedSlippage"`
	EstimatedFee      float64          `json:"estimatedFee"`
	NetAmount         float64          `json:"netAmount"`
	RunningCash       float64          `json:"runningCash"` // after this step, from a zero start
}

// SuggestionSummary aggregates a suggestion set
type SuggestionSummary struct {
	TradeCount          int     `json:"tradeCount"`
	BuyCount            int     `json:"buyCount"`
	SellCount           int     `json:"sellCount"`
	TotalVolume         float64 `json:"totalVolume"`        // Σ amount over actionable rows
	TotalEstimatedFees  float64 `json:"totalEstimatedFees"` // Σ fee + slippage
	PortfolioDrift      float64 `json:"portfolioDrift"`     // Σ |deviation| over targeted rows
	IsWellBalanced      bool    `json:"isWellBalanced"`
	PortfolioEfficiency float64 `json:"portfolioEfficiency"` // estimated drift improvement, clamped [0,100]
}

// SuggestionsData is the full rebalance engine output
type SuggestionsData struct {
	Strategy          StrategyKind       `json:"strategy"`
	GeneratedAt       time.Time          `json:"generatedAt"`
	Targets           []Suggestion       `json:"targets"`
	Summary           SuggestionSummary  `json:"summary"`
	ExecutionSteps    []ExecutionStep    `json:"executionSteps"`
	DCAChunks         []DCAChunk         `json:"dcaChunks,omitempty"`
	RiskParityTargets []RiskParityTarget `json:"riskParityTargets,omitempty"`
	CalendarBlocked   bool               `json:"calendarBlocked,omitempty"`
	NextRebalanceDate string             `json:"nextRebalanceDate,omitempty"` // YYYY-MM-DD
	TotalValueUsd     float64            `json:"totalValueUsd"`
	EffectiveTotal    float64            `json:"effectiveTotal"`
	InvestableTotal   float64            `json:"investableTotal"`
}

// AlertType classifies a portfolio alert
type AlertType string

const (
	AlertDeviation     AlertType = "deviation"
	AlertConcentration AlertType = "concentration_token"
)

// AlertSeverity grades an alert
type AlertSeverity string

const (
	SeverityLow    AlertSeverity = "low"
	SeverityMedium AlertSeverity = "medium"
	SeverityHigh   AlertSeverity = "high"
)

// Alert is one advisory condition on the current portfolio
type Alert struct {
	Type           AlertType     `json:"type"`
	Severity       AlertSeverity `json:"severity"`
	TokenSymbol    string        `json:"tokenSymbol"`
	Message        string        `json:"message"`
	CurrentPercent float64       `json:"currentPercent"`
	TargetPercent  float64       `json:"targetPercent,omitempty"`
	Deviation      float64       `json:"deviation,omitempty"`
	Threshold      float64       `json:"threshold"`
}
