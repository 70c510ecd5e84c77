package common

import "strings"

const (
	// DefaultQuoteAsset is the USD-pegged quote currency used for exchange pairs.
	DefaultQuoteAsset = "USDT"

	// DefaultMinValueUSD is the minimum USD value for a balance to become a holding.
	DefaultMinValueUSD = 5.0

	RedisKeyMarketSnapshot = "apexpulse:market:snapshot"
	RedisKeyDailyRunLock   = "apexpulse:lock:daily-run"

	DailySignalsEmailSubject = "ApexPulse | AI Swing Signals"
	DailySignalsJobMessage   = "Daily signals + email processed"
)

// StableCoins are valued at exactly 1 USD.
var StableCoins = map[string]struct{}{
	"USDT":  {},
	"USDC":  {},
	"BUSD":  {},
	"FDUSD": {},
	"TUSD":  {},
}

// IsStableCoin reports whether symbol is a USD stablecoin.
func IsStableCoin(symbol string) bool {
	_, ok := StableCoins[NormalizeSymbol(symbol)]
	return ok
}

// NormalizeSymbol upper-cases and trims an asset ticker.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// NormalizeSymbols de-duplicates and normalizes a list of tickers, dropping blanks and keeping order.
func NormalizeSymbols(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		n := NormalizeSymbol(s)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
