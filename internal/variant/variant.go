// Package variant enumerates plausible phonetic spellings of a kana reading
// together with every pitch-drop position, for use as synthesis hints.
//
// Readings are rewritten over katakana. At each position the first matching
// rule applies:
//
//	オオ          -> オー               (one branch, two characters)
//	[o-row]ウ     -> [o-row]ウ | [o-row]ー (two branches, two characters, suffix-major)
//	[e-row]イ     -> [e-row]ー           (one branch, two characters)
//	ウ (not first) -> ウ | ー             (two branches, one character, option-major)
//
// Suffix-major rules emit both options for each suffix before moving to the
// next suffix; option-major rules emit every suffix for the first option
// before the second.
//
// Any other character is copied. Each resulting base spelling is then emitted
// unmarked followed by one copy per internal boundary carrying PitchMarker.
package variant

import (
	"strings"
	"unicode/utf8"

	"github.com/book-expert/yomitan-audio/internal/kana"
)

const (
	// MaxLength is the longest reading, in characters, that is expanded.
	// Each merge position doubles the output, so the cap bounds the result
	// to 2^k * n strings.
	MaxLength = 12

	// PitchMarker marks the character boundary where the pitch drops.
	PitchMarker = '\''

	longVowelMark = 'ー'
	vowelO        = 'オ'
	vowelU        = 'ウ'
	vowelI        = 'イ'
)

// Syllables that merge with a following ウ into an optional long vowel.
var oRowSyllables = map[rune]struct{}{
	'オ': {}, 'コ': {}, 'ソ': {}, 'ト': {}, 'ノ': {}, 'ホ': {}, 'モ': {}, 'ロ': {},
	'ゴ': {}, 'ゾ': {}, 'ド': {}, 'ボ': {}, 'ポ': {}, 'ヨ': {},
}

// Syllables whose following イ always becomes a long vowel.
var eRowSyllables = map[rune]struct{}{
	'エ': {}, 'ケ': {}, 'セ': {}, 'テ': {}, 'ネ': {}, 'ヘ': {}, 'メ': {}, 'レ': {},
	'ゲ': {}, 'ゼ': {}, 'デ': {}, 'ベ': {}, 'ペ': {},
}

// Eligible reports whether reading satisfies the generator precondition:
// pure kana and at most MaxLength characters.
func Eligible(reading string) bool {
	return kana.IsKana(reading) && utf8.RuneCountInString(reading) <= MaxLength
}

// Generate returns every spelling and pitch-marking of reading, in katakana.
// It returns nil when reading is not eligible.
func Generate(reading string) []string {
	if !Eligible(reading) {
		return nil
	}

	bases := Bases(reading)
	variants := make([]string, 0, len(bases)*utf8.RuneCountInString(reading))

	for _, base := range bases {
		variants = append(variants, WithPitchMarks(base)...)
	}

	return variants
}

// Bases returns the unmarked spellings of reading in generation order. It
// returns nil when reading is not eligible.
func Bases(reading string) []string {
	if !Eligible(reading) {
		return nil
	}

	expander := &expander{
		chars: []rune(kana.ToKatakana(reading)),
		memo:  make(map[int][]string),
	}

	return expander.from(0)
}

// WithPitchMarks returns base followed by one copy of base per internal
// boundary with PitchMarker inserted there. The marker never follows the
// final character.
func WithPitchMarks(base string) []string {
	chars := []rune(base)
	marked := make([]string, 0, len(chars))

	marked = append(marked, base)

	for boundary := 1; boundary < len(chars); boundary++ {
		var builder strings.Builder

		builder.Grow(len(base) + 1)
		builder.WriteString(string(chars[:boundary]))
		builder.WriteRune(PitchMarker)
		builder.WriteString(string(chars[boundary:]))

		marked = append(marked, builder.String())
	}

	return marked
}

// StripPitchMark removes the pitch marker from a variant.
func StripPitchMark(variant string) string {
	return strings.ReplaceAll(variant, string(PitchMarker), "")
}

type expander struct {
	chars []rune
	memo  map[int][]string
}

// from returns all spellings of chars[index:]. Suffix lists are memoised
// because several branches reach the same index.
func (e *expander) from(index int) []string {
	if index >= len(e.chars) {
		return []string{""}
	}

	if cached, ok := e.memo[index]; ok {
		return cached
	}

	rule := e.ruleAt(index)
	suffixes := e.from(index + rule.consumed)

	results := make([]string, 0, len(rule.options)*len(suffixes))

	if rule.suffixMajor {
		for _, suffix := range suffixes {
			for _, option := range rule.options {
				results = append(results, option+suffix)
			}
		}
	} else {
		for _, option := range rule.options {
			for _, suffix := range suffixes {
				results = append(results, option+suffix)
			}
		}
	}

	e.memo[index] = results

	return results
}

// rule is the rewrite chosen at one position.
type rule struct {
	options  []string
	consumed int
	// suffixMajor orders output by suffix first, then option.
	suffixMajor bool
}

func single(option string, consumed int) rule {
	return rule{options: []string{option}, consumed: consumed}
}

// ruleAt returns the first rewrite rule matching at index.
func (e *expander) ruleAt(index int) rule {
	current := e.chars[index]

	if index+1 < len(e.chars) {
		next := e.chars[index+1]

		if current == vowelO && next == vowelO {
			return single(string([]rune{vowelO, longVowelMark}), 2)
		}

		if _, ok := oRowSyllables[current]; ok && next == vowelU {
			return rule{
				options: []string{
					string([]rune{current, vowelU}),
					string([]rune{current, longVowelMark}),
				},
				consumed:    2,
				suffixMajor: true,
			}
		}

		if _, ok := eRowSyllables[current]; ok && next == vowelI {
			return single(string([]rune{current, longVowelMark}), 2)
		}
	}

	if current == vowelU && index > 0 {
		return rule{options: []string{string(vowelU), string(longVowelMark)}, consumed: 1}
	}

	return single(string(current), 1)
}
