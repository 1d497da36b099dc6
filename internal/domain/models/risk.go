package models

// RiskLimits is the configured risk budget.
type RiskLimits struct {
	EquityUSD          float64
	MaxRiskPerTradePct float64
	MaxTotalRiskPct    float64
	MinLeverage        int
	MaxLeverage        int
	MarginBudgetPct    float64
	MinRewardRisk      float64
}

type RiskContext struct {
	EquityUSD          float64 `json:"equity_usd"`
	MaxLossPerTradeUSD float64 `json:"max_loss_per_trade_usd"`
	MaxTotalRiskUSD    float64 `json:"max_total_risk_usd"`
	MinLeverage        int     `json:"min_leverage"`
	MaxLeverage        int     `json:"max_leverage"`
	MarginBudgetUSD    float64 `json:"margin_budget_usd"`
}

// MarginBudgetUSD is the share of equity that may be posted as margin per setup.
func (r RiskLimits) MarginBudgetUSD() float64 {
	return r.EquityUSD * r.MarginBudgetPct / 100
}

// Context derives the risk context handed to the model.
func (r RiskLimits) Context() RiskContext {
	return RiskContext{
		EquityUSD:          r.EquityUSD,
		MaxLossPerTradeUSD: r.EquityUSD * r.MaxRiskPerTradePct / 100,
		MaxTotalRiskUSD:    r.EquityUSD * r.MaxTotalRiskPct / 100,
		MinLeverage:        r.MinLeverage,
		MaxLeverage:        r.MaxLeverage,
		MarginBudgetUSD:    r.MarginBudgetUSD(),
	}
}
