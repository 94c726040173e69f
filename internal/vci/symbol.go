package vci

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"vciquote/internal/marketdata"
)

// indexMarker flags symbols that denote an index alias rather than a listed
// instrument.
const indexMarker = "INDEX"

var derivativePattern = regexp.MustCompile(`^VN30F\w+$`)

// ResolveSymbol normalizes a raw symbol and, for index aliases, maps it to
// the provider-native code. Non-index symbols pass through unchanged; their
// validation against an exchange listing is the asset-type classifier's
// concern, not ours.
func ResolveSymbol(raw string) (string, error) {
	symbol := strings.ToUpper(strings.TrimSpace(raw))
	if symbol == "" {
		return "", fmt.Errorf("%w: empty symbol", marketdata.ErrInvalidSymbol)
	}
	if !strings.Contains(symbol, indexMarker) {
		return symbol, nil
	}
	resolved, ok := indexBySymbol[symbol]
	if !ok {
		return "", fmt.Errorf("%w: %s is not a known index, valid aliases: %s",
			marketdata.ErrInvalidSymbol, symbol, strings.Join(indexAliases(), ", "))
	}
	return resolved, nil
}

func indexAliases() []string {
	aliases := make([]string, 0, len(indexBySymbol))
	for k := range indexBySymbol {
		aliases = append(aliases, k)
	}
	sort.Strings(aliases)
	return aliases
}

// AssetTypeOf classifies a resolved symbol as index, derivative or stock.
func AssetTypeOf(symbol string) string {
	for _, code := range indexBySymbol {
		if symbol == code {
			return "index"
		}
	}
	if derivativePattern.MatchString(symbol) {
		return "derivative"
	}
	return "stock"
}
