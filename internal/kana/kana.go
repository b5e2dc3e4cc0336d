// Package kana converts between katakana and hiragana using a fixed
// character chart. Characters outside the chart pass through unchanged.
package kana

import (
	"strings"
	"unicode/utf8"
)

// The two charts are aligned rune by rune. Semi-voiced forms such as "カ゚"
// are stored as base + U+309A, so the combining mark maps onto itself.
const (
	katakanaChart = "ァアィイゥウェエォオカガカ゚キギキ゚クグク゚ケゲケ゚コゴコ゚サザシジスズセゼソゾタダチヂッツヅテデトドナニヌネノハバパヒビピフブプヘベペホボポマミムメモャヤュユョヨラリルレロヮワヰヱヲンヴヵヶヽヾ"
	hiraganaChart = "ぁあぃいぅうぇえぉおかがか゚きぎき゚くぐく゚けげけ゚こごこ゚さざしじすずせぜそぞただちぢっつづてでとどなにぬねのはばぱひびぴふぶぷへべぺほぼぽまみむめもゃやゅゆょよらりるれろゎわゐゑをんゔゕゖゝゞ"
)

// Unicode blocks accepted by IsKana.
const (
	hiraganaBlockStart = '぀'
	hiraganaBlockEnd   = 'ゟ'
	katakanaBlockStart = '゠'
	katakanaBlockEnd   = 'ヿ'
)

var (
	toHiragana = buildIndex(katakanaChart, hiraganaChart)
	toKatakana = buildIndex(hiraganaChart, katakanaChart)
)

func buildIndex(from, to string) map[rune]rune {
	fromRunes := []rune(from)
	toRunes := []rune(to)

	index := make(map[rune]rune, len(fromRunes))

	for i, r := range fromRunes {
		// First occurrence wins, matching a left-to-right chart scan.
		if _, seen := index[r]; seen {
			continue
		}

		index[r] = toRunes[i]
	}

	return index
}

func convert(text string, index map[rune]rune) string {
	if text == "" {
		return ""
	}

	var builder strings.Builder

	builder.Grow(len(text))

	for _, r := range text {
		mapped, ok := index[r]
		if !ok {
			mapped = r
		}

		builder.WriteRune(mapped)
	}

	return builder.String()
}

// ToHiragana converts every katakana character found in the chart to its
// hiragana counterpart.
func ToHiragana(text string) string {
	return convert(text, toHiragana)
}

// ToKatakana converts every hiragana character found in the chart to its
// katakana counterpart.
func ToKatakana(text string) string {
	return convert(text, toKatakana)
}

// IsKana reports whether text is non-empty and made only of characters from
// the hiragana and katakana Unicode blocks. The prolonged sound mark "ー"
// belongs to the katakana block.
func IsKana(text string) bool {
	if text == "" {
		return false
	}

	for _, r := range text {
		if r == utf8.RuneError {
			return false
		}

		inHiragana := r >= hiraganaBlockStart && r <= hiraganaBlockEnd
		inKatakana := r >= katakanaBlockStart && r <= katakanaBlockEnd

		if !inHiragana && !inKatakana {
			return false
		}
	}

	return true
}
