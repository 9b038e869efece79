// Package rebalance turns vault data and prices into rebalance advice
package rebalance

import (
	"github.com/stakd-me/stakd-sub000/internal/common"
	"github.com/stakd-me/stakd-sub000/internal/models"
)

// Settings keys and defaults. Parsing never fails: blank or malformed
// values take the default so a half-edited settings screen still yields a
// usable engine run.
const (
	defaultHoldZonePercent          = 5.0
	defaultMinTradeUsd              = 50.0
	defaultNewCashUsd               = 0.0
	defaultCashReserveUsd           = 0.0
	defaultCashReservePercent       = 0.0
	defaultDustThresholdUsd         = 1.0
	defaultSlippagePercent          = 0.5
	defaultTradingFeePercent        = 0.1
	defaultConcentrationPercent     = 30.0
	defaultPortfolioChangeThreshold = 5.0
	defaultRiskParityLookbackDays   = 30
	defaultDCASplitCount            = 4
	defaultDCAIntervalDays          = 7
)

// ParseSettings converts the raw settings map into its typed form.
func ParseSettings(raw map[string]string) models.RebalanceSettings {
	get := func(key string) string { return raw[key] }

	interval := models.RebalanceInterval(get("rebalanceInterval"))
	switch interval {
	case models.IntervalWeekly, models.IntervalMonthly, models.IntervalQuarterly:
	default:
		interval = models.IntervalMonthly
	}

	return models.RebalanceSettings{
		HoldZonePercent:               common.ParseFloatDefault(get("holdZonePercent"), defaultHoldZonePercent),
		MinTradeUsd:                   common.ParseFloatDefault(get("minTradeUsd"), defaultMinTradeUsd),
		BuyOnlyMode:                   common.ParseBoolFlag(get("buyOnlyMode")),
		NewCashUsd:                    common.ParseFloatDefault(get("newCashUsd"), defaultNewCashUsd),
		CashReserveUsd:                common.ParseFloatDefault(get("cashReserveUsd"), defaultCashReserveUsd),
		CashReservePercent:            common.ParseFloatDefault(get("cashReservePercent"), defaultCashReservePercent),
		DustThresholdUsd:              common.ParseFloatDefault(get("dustThresholdUsd"), defaultDustThresholdUsd),
		SlippagePercent:               common.ParseFloatDefault(get("slippagePercent"), defaultSlippagePercent),
		TradingFeePercent:             common.ParseFloatDefault(get("tradingFeePercent"), defaultTradingFeePercent),
		ConcentrationThresholdPercent: common.ParseFloatDefault(get("concentrationThresholdPercent"), defaultConcentrationPercent),
		ExcludeStablecoinsFromConc:    common.ParseBoolFlag(get("excludeStablecoinsFromConcentration")),
		TreatStablecoinsAsCash:        common.ParseBoolFlag(get("treatStablecoinsAsCashReserve")),
		Strategy:                      models.ParseStrategy(get("rebalanceStrategy")),
		Interval:                      interval,
		PortfolioChangeThreshold:      common.ParseFloatDefault(get("portfolioChangeThreshold"), defaultPortfolioChangeThreshold),
		RiskParityLookbackDays:        common.ParseIntDefault(get("riskParityLookbackDays"), defaultRiskParityLookbackDays),
		DCASplitCount:                 common.ParseIntDefault(get("dcaSplitCount"), defaultDCASplitCount),
		DCAIntervalDays:               common.ParseIntDefault(get("dcaIntervalDays"), defaultDCAIntervalDays),
		LastRebalanceDate:             common.ParseDateFlexible(get("lastRebalanceDate")),
	}
}
