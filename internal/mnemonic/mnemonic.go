// Package mnemonic validates BIP39 phrases, suggests corrections for
// mistyped words, and turns phrases into master key nodes.
package mnemonic

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/tyler-smith/go-bip39"

	"github.com/mrz1836/hdscan/internal/keynode"
	scanerr "github.com/mrz1836/hdscan/pkg/errors"
)

// ErrInvalidWordCount indicates a word count BIP39 does not define.
var ErrInvalidWordCount = errors.New("word count must be 12, 15, 18, 21 or 24")

var (
	// whitespaceRegex matches one or more whitespace characters.
	whitespaceRegex = regexp.MustCompile(`\s+`)

	// numberedListRegex matches numbered list prefixes like "1." "2)" "3:"
	numberedListRegex = regexp.MustCompile(`(?m)^\s*\d+[\.\)\:]\s*`)

	// bulletListRegex matches bullet prefixes like "- " "* " "• "
	bulletListRegex = regexp.MustCompile(`(?m)^\s*[-*•]\s*`)
)

// entropyBits maps a word count to its entropy size.
var entropyBits = map[int]int{12: 128, 15: 160, 18: 192, 21: 224, 24: 256}

// Generate creates a new BIP39 mnemonic phrase with wordCount words.
func Generate(wordCount int) (string, error) {
	bits, ok := entropyBits[wordCount]
	if !ok {
		return "", ErrInvalidWordCount
	}

	entropy, err := bip39.NewEntropy(bits)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}

// Normalize cleans pasted mnemonic input by lowercasing, dropping list
// numbering and bullets, treating commas as separators, and collapsing
// whitespace.
func Normalize(input string) string {
	input = strings.ToLower(input)
	input = numberedListRegex.ReplaceAllString(input, " ")
	input = bulletListRegex.ReplaceAllString(input, " ")
	input = strings.ReplaceAll(input, ",", " ")
	input = whitespaceRegex.ReplaceAllString(input, " ")
	return strings.TrimSpace(input)
}

// Validate checks word count, word validity and checksum. Invalid words are
// reported with correction suggestions.
func Validate(phrase string) error {
	normalized := Normalize(phrase)
	words := strings.Fields(normalized)
	if _, ok := entropyBits[len(words)]; !ok {
		return scanerr.WithSuggestion(
			scanerr.WithDetails(scanerr.ErrInvalidMnemonic, map[string]string{"words": strconv.Itoa(len(words))}),
			ErrInvalidWordCount.Error(),
		)
	}

	if typos := DetectTypos(normalized); len(typos) > 0 {
		return scanerr.WithSuggestion(scanerr.ErrInvalidMnemonic, FormatTypoSuggestions(typos))
	}

	// MnemonicToByteArray validates the checksum
	if _, err := bip39.MnemonicToByteArray(normalized); err != nil {
		return scanerr.WithCause(scanerr.ErrInvalidMnemonic, err)
	}
	return nil
}

// ToSeed converts a mnemonic and optional passphrase to a 64-byte seed.
// Callers should zero the seed when done with it.
func ToSeed(phrase, passphrase string) ([]byte, error) {
	if err := Validate(phrase); err != nil {
		return nil, err
	}
	return bip39.NewSeed(Normalize(phrase), passphrase), nil
}

// Master derives the BIP32 master node for a mnemonic using backend.
func Master(phrase, passphrase string, backend keynode.Backend) (keynode.Node, error) {
	seed, err := ToSeed(phrase, passphrase)
	if err != nil {
		return nil, err
	}
	defer wipe(seed, mlock(seed))

	return keynode.FromSeed(seed, backend)
}

// wipe zeroes b and releases its memory lock.
func wipe(b []byte, locked bool) {
	clear(b)
	if locked {
		munlock(b)
	}
}

// IsValidWord checks if a word is in the BIP39 English word list.
func IsValidWord(word string) bool {
	_, ok := bip39.GetWordIndex(strings.ToLower(word))
	return ok
}

// MaxTypoDistance is the maximum Levenshtein distance to consider a suggestion.
const MaxTypoDistance = 2

// TypoInfo describes a word missing from the word list.
type TypoInfo struct {
	// Index is the word position in the mnemonic (0-based).
	Index int
	// Word is the original (possibly misspelled) word.
	Word string
	// Suggestion is the closest BIP39 word, or empty if none found.
	Suggestion string
	// Distance is the Levenshtein distance to the suggestion.
	Distance int
}

// SuggestWord returns the closest BIP39 word to input, or "" when nothing is
// within MaxTypoDistance.
func SuggestWord(input string) string {
	input = strings.ToLower(input)

	minDist := math.MaxInt
	var suggestion string
	for _, word := range bip39.GetWordList() {
		dist := levenshtein.ComputeDistance(input, word)
		if dist == 0 {
			return word
		}
		if dist < minDist {
			minDist = dist
			suggestion = word
		}
	}

	if minDist <= MaxTypoDistance {
		return suggestion
	}
	return ""
}

// DetectTypos returns every word of the phrase that is not a BIP39 word.
func DetectTypos(phrase string) []TypoInfo {
	var typos []TypoInfo
	for i, word := range strings.Fields(Normalize(phrase)) {
		if IsValidWord(word) {
			continue
		}
		info := TypoInfo{Index: i, Word: word, Suggestion: SuggestWord(word)}
		if info.Suggestion != "" {
			info.Distance = levenshtein.ComputeDistance(word, info.Suggestion)
		}
		typos = append(typos, info)
	}
	return typos
}

// FormatTypoSuggestions formats typo information into human-readable suggestions.
func FormatTypoSuggestions(typos []TypoInfo) string {
	var b strings.Builder
	for i, typo := range typos {
		if i > 0 {
			b.WriteByte('\n')
		}
		// Word position is 1-indexed for human readability
		b.WriteString("Word ")
		b.WriteString(strconv.Itoa(typo.Index + 1))
		b.WriteString(": '")
		b.WriteString(typo.Word)
		b.WriteByte('\'')
		if typo.Suggestion != "" {
			b.WriteString(" - did you mean '")
			b.WriteString(typo.Suggestion)
			b.WriteString("'?")
		} else {
			b.WriteString(" is not a valid BIP39 word")
		}
	}
	return b.String()
}
