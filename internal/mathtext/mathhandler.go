// Package mathtext detects and normalizes mathematical notation inside
// extracted document text, including recovery of garbled surrogate-pair
// math symbols produced by some upstream PDF text extractors.
package mathtext

import (
	"regexp"
	"strings"
	"unicode"
)

// Analysis is the result of scanning a chunk of text for mathematical content.
type Analysis struct {
	HasMath             bool
	MathScore           float64
	MathTypes           []string
	HasExtractionIssues bool
}

// Regex patterns for math-shaped text, following the same table-of-patterns
// idiom used for document structure detection.
var (
	equationPattern   = regexp.MustCompile(`[a-zA-Z]\s*=\s*[a-zA-Z0-9]`)
	functionPattern   = regexp.MustCompile(`\b[a-zA-Z]\(\s*[a-zA-Z0-9]+\s*\)`)
	subscriptPattern  = regexp.MustCompile(`[a-zA-Z]_[a-zA-Z0-9]`)
	limitFormPattern  = regexp.MustCompile(`(?i)\b(lim|max|min|sup|inf)\b`)
	statFormPattern   = regexp.MustCompile(`[EP]\s*[\[\(][^\]\)]{0,40}[\]\)]`)
	latexCmdPattern   = regexp.MustCompile(`\\[a-zA-Z]+(\{[^{}]*\})?`)
	mathOperatorChars = "∑∏∫√∂∇±×÷≤≥≠≈∞∈∉⊂⊃∪∩→←↔∀∃"
)

// greekLetters is the Unicode Greek letter block used both for detection and
// for expansion into ASCII names by Searchable.
var greekLetters = map[rune]string{
	'α': "alpha", 'β': "beta", 'γ': "gamma", 'δ': "delta", 'ε': "epsilon",
	'ζ': "zeta", 'η': "eta", 'θ': "theta", 'ι': "iota", 'κ': "kappa",
	'λ': "lambda", 'μ': "mu", 'ν': "nu", 'ξ': "xi", 'ο': "omicron",
	'π': "pi", 'ρ': "rho", 'σ': "sigma", 'τ': "tau", 'υ': "upsilon",
	'φ': "phi", 'χ': "chi", 'ψ': "psi", 'ω': "omega",
	'Α': "Alpha", 'Β': "Beta", 'Γ': "Gamma", 'Δ': "Delta", 'Ε': "Epsilon",
	'Ζ': "Zeta", 'Η': "Eta", 'Θ': "Theta", 'Ι': "Iota", 'Κ': "Kappa",
	'Λ': "Lambda", 'Μ': "Mu", 'Ν': "Nu", 'Ξ': "Xi", 'Ο': "Omicron",
	'Π': "Pi", 'Ρ': "Rho", 'Σ': "Sigma", 'Τ': "Tau", 'Υ': "Upsilon",
	'Φ': "Phi", 'Χ': "Chi", 'Ψ': "Psi", 'Ω': "Omega",
}

// smpMathAlphanumericBase is the start of the Mathematical Alphanumeric
// Symbols block (U+1D400) used by MathHandler to detect and recover garbled
// surrogate pairs.
const smpMathAlphanumericBase rune = 0x1D400
const smpMathAlphanumericEnd rune = 0x1D7FF

// garbledSurrogateBase is the Hangul Syllables range (U+D400..U+D7FF) that a
// broken surrogate-pair decoder sometimes emits in place of a Mathematical
// Alphanumeric Symbol; recover(ch) restores the SMP code point by adding
// 0x10000 — the high bit lost when the decoder mis-split the pair.
const garbledSurrogateLow rune = 0xD400
const garbledSurrogateHigh rune = 0xD7FF

func isGarbledMathRune(r rune) bool {
	return r >= garbledSurrogateLow && r <= garbledSurrogateHigh
}

func isSMPMathRune(r rune) bool {
	return r >= smpMathAlphanumericBase && r <= smpMathAlphanumericEnd
}

// Analyze scans text for mathematical notation and returns the signal counts
// used to decide whether a chunk should be treated as math-bearing.
func Analyze(text string) Analysis {
	if text == "" {
		return Analysis{}
	}

	var (
		greekCount     int
		smpCount       int
		operatorCount  int
		garbledCount   int
		equationHits   int
		latexResidual  int
		mathTypesFound = map[string]bool{}
	)

	runes := []rune(text)
	for i, r := range runes {
		switch {
		case greekLetters[r] != "":
			greekCount++
			mathTypesFound["greek"] = true
		case isSMPMathRune(r):
			smpCount++
			mathTypesFound["smp_alphanumeric"] = true
		case strings.ContainsRune(mathOperatorChars, r):
			operatorCount++
			mathTypesFound["operator"] = true
		case isGarbledMathRune(r):
			if adjacentToNumeralOrOperator(runes, i) {
				garbledCount++
				mathTypesFound["garbled_surrogate"] = true
			}
		}
	}

	if equationPattern.MatchString(text) {
		equationHits += len(equationPattern.FindAllString(text, -1))
		mathTypesFound["equation"] = true
	}
	if functionPattern.MatchString(text) {
		equationHits += len(functionPattern.FindAllString(text, -1))
		mathTypesFound["function_notation"] = true
	}
	if subscriptPattern.MatchString(text) {
		equationHits += len(subscriptPattern.FindAllString(text, -1))
		mathTypesFound["subscript"] = true
	}
	if limitFormPattern.MatchString(text) {
		mathTypesFound["limit_form"] = true
		equationHits++
	}
	if statFormPattern.MatchString(text) {
		mathTypesFound["statistical_form"] = true
		equationHits++
	}
	if m := latexCmdPattern.FindAllString(text, -1); len(m) > 0 {
		latexResidual = len(m)
		mathTypesFound["latex_residual"] = true
	}

	weightedCount := float64(greekCount) + float64(smpCount) + 2*float64(operatorCount) +
		float64(equationHits) + float64(latexResidual) + 3*float64(garbledCount)

	score := weightedCount / (0.1 * float64(len(runes)))
	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}

	types := make([]string, 0, len(mathTypesFound))
	for t := range mathTypesFound {
		types = append(types, t)
	}

	return Analysis{
		HasMath:             score > 0.05 || len(types) >= 2,
		MathScore:           score,
		MathTypes:           types,
		HasExtractionIssues: garbledCount > 0,
	}
}

// adjacentToNumeralOrOperator reports whether the nearest non-space rune on
// either side of index i is a numeral (superscripts included), a decimal
// point, or a math operator — the shape that distinguishes a genuinely
// garbled Mathematical Alphanumeric Symbol from stray Hangul text.
func adjacentToNumeralOrOperator(runes []rune, i int) bool {
	check := func(r rune) bool {
		return unicode.IsNumber(r) || r == '.' || strings.ContainsRune(mathOperatorChars, r) || r == '='
	}
	for j := i - 1; j >= 0; j-- {
		if runes[j] != ' ' {
			if check(runes[j]) {
				return true
			}
			break
		}
	}
	for j := i + 1; j < len(runes); j++ {
		if runes[j] != ' ' {
			return check(runes[j])
		}
	}
	return false
}

// Recover restores the intended Mathematical Alphanumeric Symbol for a
// garbled Hangul code point produced by a broken surrogate-pair extraction.
func Recover(ch rune) rune {
	if isGarbledMathRune(ch) {
		return ch + 0x10000
	}
	return ch
}

var (
	ligaturePairs = map[string]string{
		"ﬁ": "fi", "ﬂ": "fl", "ﬀ": "ff", "ﬃ": "ffi", "ﬄ": "ffl",
		"“": "\"", "”": "\"", "‘": "'", "’": "'", "–": "-", "—": "-", "…": "...",
	}
	orphanLatexPattern   = regexp.MustCompile(`\\[a-zA-Z]+\{([^{}]*)\}`)
	orphanLatexBarePatt  = regexp.MustCompile(`\\[a-zA-Z]+`)
	repeatedSpacePattern = regexp.MustCompile(`[ \t]{2,}`)
	tripleNewlinePattern = regexp.MustCompile(`\n{3,}`)
	punctSpacePattern    = regexp.MustCompile(`\s+([,.;:!?])`)
)

// Clean recovers garbled math, normalizes SMP math letters/digits/Greek to
// their plain equivalents, replaces ligatures and smart punctuation, strips
// orphan LaTeX commands while preserving their brace contents, and tightens
// whitespace.
func Clean(text string) string {
	if text == "" {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	runes := []rune(text)
	for i, r := range runes {
		if isGarbledMathRune(r) && adjacentToNumeralOrOperator(runes, i) {
			r = Recover(r)
		}
		if isSMPMathRune(r) {
			b.WriteString(smpToPlain(r))
			continue
		}
		b.WriteRune(r)
	}
	cleaned := b.String()

	for lig, plain := range ligaturePairs {
		cleaned = strings.ReplaceAll(cleaned, lig, plain)
	}

	cleaned = orphanLatexPattern.ReplaceAllString(cleaned, "$1")
	cleaned = orphanLatexBarePatt.ReplaceAllString(cleaned, "")

	cleaned = repeatedSpacePattern.ReplaceAllString(cleaned, " ")
	cleaned = tripleNewlinePattern.ReplaceAllString(cleaned, "\n\n")
	cleaned = punctSpacePattern.ReplaceAllString(cleaned, "$1")

	return cleaned
}

// Searchable returns Clean(text) with Greek letters additionally expanded to
// their ASCII names (α -> "alpha") so lexical scoring matches queries like
// "alpha decay" against "α decay".
func Searchable(text string) string {
	cleaned := Clean(text)
	var b strings.Builder
	b.Grow(len(cleaned))
	for _, r := range cleaned {
		if name, ok := greekLetters[r]; ok {
			b.WriteString(" ")
			b.WriteString(name)
			b.WriteString(" ")
			continue
		}
		b.WriteRune(r)
	}
	return repeatedSpacePattern.ReplaceAllString(b.String(), " ")
}

// mathItalicSmallH is the one documented gap in the Mathematical
// Alphanumeric Symbols alphabetic blocks: italic small h is encoded in the
// Letterlike Symbols block (PLANCK CONSTANT, U+210E) instead.
const mathItalicSmallH rune = 0x210E

// smpToPlain maps a Mathematical Alphanumeric Symbol to its plain ASCII
// letter or digit. The thirteen alphabetic styles (bold, italic, bold italic,
// script, bold script, fraktur, double-struck, bold fraktur, sans-serif,
// sans-serif bold, sans-serif italic, sans-serif bold italic, monospace) are each 52
// contiguous code points (A-Z then a-z) starting at U+1D400; the digit
// styles are each 10 contiguous code points starting at U+1D7CE.
func smpToPlain(r rune) string {
	if r == mathItalicSmallH {
		return "h"
	}
	if r >= smpMathAlphanumericBase && r < 0x1D6A4 {
		within := (r - smpMathAlphanumericBase) % 52
		if within < 26 {
			return string(rune('A' + within))
		}
		return string(rune('a' + within - 26))
	}
	if r >= 0x1D7CE && r <= smpMathAlphanumericEnd {
		return string(rune('0' + (r-0x1D7CE)%10))
	}
	return string(r)
}
