package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/mrz1836/hdscan/internal/mnemonic"
	scanerr "github.com/mrz1836/hdscan/pkg/errors"
)

// Prompt hooks, replaced in tests.
//
//nolint:gochecknoglobals // swapped by tests
var (
	promptMnemonicFn   = promptMnemonic
	promptPassphraseFn = promptPassphrase

	// stdinLines is shared so consecutive piped prompts do not lose
	// buffered input.
	stdinLines *bufio.Reader
)

// readSecret reads a line without echo when stdin is a terminal, and a plain
// line otherwise so mnemonics can be piped in.
// The caller is responsible for zeroing the returned bytes after use.
func readSecret(prompt string) ([]byte, error) {
	out(os.Stderr, "%s", prompt)

	fd := int(os.Stdin.Fd()) //nolint:gosec // G115: Fd() fits in int on supported platforms
	if term.IsTerminal(fd) {
		secret, err := term.ReadPassword(fd)
		outln(os.Stderr) // Add newline after hidden input
		if err != nil {
			return nil, fmt.Errorf("reading input: %w", err)
		}
		return secret, nil
	}

	if stdinLines == nil {
		stdinLines = bufio.NewReader(os.Stdin)
	}
	line, err := stdinLines.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	return []byte(strings.TrimRight(line, "\r\n")), nil
}

// promptMnemonic prompts for a BIP39 mnemonic and validates it.
func promptMnemonic() (string, error) {
	secret, err := readSecret("Enter mnemonic (all words on one line): ")
	if err != nil {
		return "", err
	}
	defer clear(secret)

	phrase := mnemonic.Normalize(string(secret))
	if phrase == "" {
		return "", scanerr.WithSuggestion(scanerr.ErrInvalidInput, "no mnemonic provided")
	}
	if err := mnemonic.Validate(phrase); err != nil {
		return "", err
	}
	return phrase, nil
}

// promptPassphrase prompts for an optional BIP39 passphrase with confirmation.
func promptPassphrase() (string, error) {
	outln(os.Stderr, "\nBIP39 passphrase (leave empty for none):")

	passphrase, err := readSecret("Enter passphrase: ")
	if err != nil {
		return "", err
	}
	defer clear(passphrase)

	if len(passphrase) == 0 {
		return "", nil
	}

	confirm, err := readSecret("Confirm passphrase: ")
	if err != nil {
		return "", err
	}
	defer clear(confirm)

	if string(passphrase) != string(confirm) {
		return "", scanerr.WithSuggestion(
			scanerr.ErrInvalidInput,
			"passphrases do not match",
		)
	}

	// Convert to string for the BIP39 API
	return string(passphrase), nil
}
