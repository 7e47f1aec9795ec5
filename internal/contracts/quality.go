package contracts

import "time"

// QualityScore grades a trade batch
type QualityScore string

const (
	QualityExcellent QualityScore = "excellent"
	QualityGood      QualityScore = "good"
	QualityFair      QualityScore = "fair"
	QualityPoor      QualityScore = "poor"
)

// TradeValidation is the structural check result of one trade
type TradeValidation struct {
	TradeID  string   `json:"trade_id"`
	IsValid  bool     `json:"is_valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// Outlier is a trade whose P&L z-score exceeds the threshold
type Outlier struct {
	TradeID string  `json:"trade_id"`
	PnL     float64 `json:"pnl"`
	ZScore  float64 `json:"z_score"`
}

// NegativeEquityCheck is the sequential replay result of a trade batch
type NegativeEquityCheck struct {
	WentNegative    bool       `json:"went_negative"`
	LowestEquity    float64    `json:"lowest_equity"`
	LowestAt        *time.Time `json:"lowest_at"`
	FirstNegativeAt *time.Time `json:"first_negative_at"`
}

// DataQualityReport aggregates validation, outliers and the negative-equity replay
// ⭐ SSOT: 계산기는 데이터를 거부하지 않음, 분류는 여기서만
type DataQualityReport struct {
	TotalTrades    int                 `json:"total_trades"`
	ValidTrades    int                 `json:"valid_trades"`
	InvalidTrades  int                 `json:"invalid_trades"`
	WarningCount   int                 `json:"warning_count"`
	IssueCount     int                 `json:"issue_count"`
	Validations    []TradeValidation   `json:"validations"`
	Outliers       []Outlier           `json:"outliers"`
	NegativeEquity NegativeEquityCheck `json:"negative_equity"`
	Score          QualityScore        `json:"score"`
}
