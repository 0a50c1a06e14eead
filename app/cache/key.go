package cache

import (
	"crypto/md5"
	"encoding/hex"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var keywordCaser = cases.Lower(language.Und)

// NormalizeKeyword produces the case- and whitespace-insensitive
// canonical form used for cache keys and deduplication. The original
// input string is kept elsewhere for display.
func NormalizeKeyword(keyword string) string {
	folded := keywordCaser.String(strings.TrimSpace(keyword))
	return strings.Join(strings.Fields(folded), " ")
}

// Key derives the deterministic cache key for a keyword, timeframe and
// data type combination.
func Key(keyword, timeframe, dataType string) string {
	if timeframe == "" {
		timeframe = "default"
	}
	if dataType == "" {
		dataType = "trends"
	}

	keyString := NormalizeKeyword(keyword) + "|" + timeframe + "|" + dataType
	sum := md5.Sum([]byte(keyString))
	return hex.EncodeToString(sum[:])
}
