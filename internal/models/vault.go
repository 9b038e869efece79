// Package models defines data structures for Stakd
package models

import (
	"sort"
	"strings"
	"time"
)

// TransactionType classifies a ledger entry
type TransactionType string

const (
	TransactionBuy     TransactionType = "buy"
	TransactionSell    TransactionType = "sell"
	TransactionReceive TransactionType = "receive" // transfer in, airdrop, staking reward
	TransactionSend    TransactionType = "send"    // transfer out
)

// Valid reports whether t is one of the four ledger entry types.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionBuy, TransactionSell, TransactionReceive, TransactionSend:
		return true
	}
	return false
}

// Transaction is one append-only ledger entry. Numeric fields are FlexFloat
// because exchange exports encode numbers inconsistently.
type Transaction struct {
	ID           string          `json:"id"`
	TokenSymbol  string          `json:"tokenSymbol"`
	TokenName    string          `json:"tokenName,omitempty"`
	Type         TransactionType `json:"type"`
	Quantity     FlexFloat       `json:"quantity"`
	PricePerUnit FlexFloat       `json:"pricePerUnit"` // USD at transaction time
	TotalCost    FlexFloat       `json:"totalCost"`    // gross USD, typically quantity × pricePerUnit
	Fee          FlexFloat       `json:"fee"`          // USD
	CoingeckoID  string          `json:"coingeckoId,omitempty"`
	TransactedAt time.Time       `json:"transactedAt"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// ManualEntry is an off-exchange balance (cold wallet, unsupported chain).
// It contributes quantity only and never carries cost basis.
type ManualEntry struct {
	ID          string    `json:"id"`
	TokenSymbol string    `json:"tokenSymbol"`
	TokenName   string    `json:"tokenName,omitempty"`
	Quantity    FlexFloat `json:"quantity"`
	CoingeckoID string    `json:"coingeckoId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// RebalanceTarget is one allocation row. TokenSymbol may name a token group
// instead of a symbol; the group match wins when both exist.
type RebalanceTarget struct {
	ID            string    `json:"id"`
	TokenSymbol   string    `json:"tokenSymbol"`
	TargetPercent FlexFloat `json:"targetPercent"`
	CoingeckoID   string    `json:"coingeckoId,omitempty"`
}

// TokenGroup names a basket of symbols targeted as one unit
type TokenGroup struct {
	Name    string   `json:"name"`
	Symbols []string `json:"symbols"`
}

// TokenCategory tags a symbol with a classification such as "stablecoin"
type TokenCategory struct {
	TokenSymbol string `json:"tokenSymbol"`
	Category    string `json:"category"`
}

// SettingRecord is one persisted settings key/value pair
type SettingRecord struct {
	Key   string `json:"key" badgerhold:"key"`
	Value string `json:"value"`
}

// VaultData is the full user dataset the engine computes over
type VaultData struct {
	Transactions     []Transaction     `json:"transactions"`
	ManualEntries    []ManualEntry     `json:"manualEntries"`
	RebalanceTargets []RebalanceTarget `json:"rebalanceTargets"`
	TokenGroups      []TokenGroup      `json:"tokenGroups"`
	TokenCategories  []TokenCategory   `json:"tokenCategories"`
	Settings         map[string]string `json:"settings"`
}

// NormalizeSymbol canonicalizes a token symbol for grouping and lookups.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// NormalizeCoingeckoID canonicalizes a CoinGecko id (they are lowercase slugs).
func NormalizeCoingeckoID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// HoldingKey builds the aggregation key for a symbol + CoinGecko id pair.
// Same symbol under two ids stays two holdings.
func HoldingKey(symbol, coingeckoID string) string {
	return NormalizeSymbol(symbol) + "|" + NormalizeCoingeckoID(coingeckoID)
}

// defaultStablecoins are treated as stablecoins without explicit category tags.
var defaultStablecoins = map[string]bool{
	"USDT": true, "USDC": true, "DAI": true, "BUSD": true,
	"TUSD": true, "USDP": true, "FDUSD": true, "PYUSD": true,
	"GUSD": true, "FRAX": true, "LUSD": true, "USDD": true,
}

// StablecoinSet returns the symbols considered stablecoins: the built-in set
// plus any symbol categorized as "stablecoin" (case-insensitive).
func (v *VaultData) StablecoinSet() map[string]bool {
	set := make(map[string]bool, len(defaultStablecoins)+len(v.TokenCategories))
	for sym := range defaultStablecoins {
		set[sym] = true
	}
	for _, cat := range v.TokenCategories {
		if strings.EqualFold(strings.TrimSpace(cat.Category), "stablecoin") {
			set[NormalizeSymbol(cat.TokenSymbol)] = true
		}
	}
	return set
}

// GroupByName returns the token groups indexed by exact name.
func (v *VaultData) GroupByName() map[string]TokenGroup {
	groups := make(map[string]TokenGroup, len(v.TokenGroups))
	for _, g := range v.TokenGroups {
		groups[strings.TrimSpace(g.Name)] = g
	}
	return groups
}

// Setting returns the raw settings value for key, or "" when absent.
func (v *VaultData) Setting(key string) string {
	if v.Settings == nil {
		return ""
	}
	return v.Settings[key]
}

// ResolveCoingeckoIDs maps each symbol to a CoinGecko id. Explicit target
// ids win, then the first transaction carrying one, then the first manual
// entry. The first resolution for a symbol is never overwritten.
func (v *VaultData) ResolveCoingeckoIDs() map[string]string {
	ids := make(map[string]string)

	record := func(symbol, id string) {
		sym := NormalizeSymbol(symbol)
		cid := NormalizeCoingeckoID(id)
		if sym == "" || cid == "" {
			return
		}
		if _, ok := ids[sym]; !ok {
			ids[sym] = cid
		}
	}

	for _, t := range v.RebalanceTargets {
		record(t.TokenSymbol, t.CoingeckoID)
	}
	for _, tx := range v.Transactions {
		record(tx.TokenSymbol, tx.CoingeckoID)
	}
	for _, entry := range v.ManualEntries {
		record(entry.TokenSymbol, entry.CoingeckoID)
	}

	return ids
}

// TrackedTokens lists every symbol the vault references together with its
// resolved CoinGecko id, sorted by symbol. Symbols with no resolvable id
// are skipped: nothing can price them.
func (v *VaultData) TrackedTokens() []TrackedToken {
	ids := v.ResolveCoingeckoIDs()

	symbols := make([]string, 0, len(ids))
	for sym := range ids {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	tokens := make([]TrackedToken, 0, len(symbols))
	for _, sym := range symbols {
		tokens = append(tokens, TrackedToken{Symbol: sym, CoingeckoID: ids[sym]})
	}
	return tokens
}
