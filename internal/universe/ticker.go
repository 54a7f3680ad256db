package universe

import (
	"fmt"
	"strings"

	"github.com/newthinker/trendstrength/internal/core"
)

type tickerType struct {
	symbol byte
	prefix string
	asset  core.AssetType
}

// Vendor symbols mark the instrument type with a leading character; internal
// ids use a lowercase two character prefix instead.
var tickerTypes = []tickerType{
	{'&', "c_", core.AssetFuture},
	{'#', "r_", core.AssetRatio},
	{'@', "s_", core.AssetSpot},
	{'$', "i_", core.AssetIndex},
	{'%', "y_", core.AssetYield},
}

// ToInternal converts a vendor symbol such as "&ES_CCB" to "c_es_ccb".
// Symbols without a type character are lowercased equities.
func ToInternal(vendor string) (core.InstrumentID, core.AssetType, error) {
	vendor = strings.TrimSpace(vendor)
	if vendor == "" {
		return "", core.AssetUndefined, fmt.Errorf("empty vendor symbol")
	}
	for _, tt := range tickerTypes {
		if vendor[0] == tt.symbol {
			if len(vendor) == 1 {
				return "", core.AssetUndefined, fmt.Errorf("vendor symbol %q has no body", vendor)
			}
			return core.InstrumentID(tt.prefix + strings.ToLower(vendor[1:])), tt.asset, nil
		}
	}
	return core.InstrumentID(strings.ToLower(vendor)), core.AssetEquity, nil
}

// ToVendor converts an internal id back to the vendor symbol. Continuous
// futures drop their prefix ("c_es_ccb" becomes "&ES_CCB").
func ToVendor(id core.InstrumentID) string {
	s := string(id)
	for _, tt := range tickerTypes {
		if rest, ok := strings.CutPrefix(s, tt.prefix); ok {
			return string(tt.symbol) + strings.ToUpper(rest)
		}
	}
	return strings.ToUpper(s)
}

// AssetTypeOf infers the asset type from an internal id prefix
func AssetTypeOf(id core.InstrumentID) core.AssetType {
	for _, tt := range tickerTypes {
		if strings.HasPrefix(string(id), tt.prefix) {
			return tt.asset
		}
	}
	return core.AssetEquity
}
