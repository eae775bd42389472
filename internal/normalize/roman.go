package normalize

import (
	"strconv"
	"strings"
)

// romanValues pairs Arabic values with Roman tokens, descending.
var romanValues = []struct {
	value int
	token string
}{
	{1000, "M"}, {900, "CM"}, {500, "D"}, {400, "CD"},
	{100, "C"}, {90, "XC"}, {50, "L"}, {40, "XL"},
	{10, "X"}, {9, "IX"}, {5, "V"}, {4, "IV"}, {1, "I"},
}

func toRoman(n int) string {
	var b strings.Builder
	for _, rv := range romanValues {
		for n >= rv.value {
			b.WriteString(rv.token)
			n -= rv.value
		}
	}
	return b.String()
}

// convertRomanNumerals collapses Roman numerals from 25 down to 6 into
// Arabic digits. Descending order gives longest-match-first within a shared
// prefix, so "IX" becomes "9" without corrupting "VIII". Single-letter
// numerals (V, X, ...) are left alone; they are far more often initials
// than numbers. Frozen; the bound of 25 is part of shipped asset ids.
func convertRomanNumerals(text string) string {
	for i := 25; i > 5; i-- {
		numeral := toRoman(i)
		if len(numeral) > 1 {
			text = strings.ReplaceAll(text, numeral, strconv.Itoa(i))
		}
	}
	return text
}
