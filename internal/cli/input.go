package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Terminal hooks, replaced in tests
var (
	readPIN    = term.ReadPassword
	isTerminal = term.IsTerminal
)

// resolvePIN returns the flag value, or prompts for the PIN without echo
// when the flag was left empty
func resolvePIN(flagPIN string, w io.Writer) (string, error) {
	if flagPIN != "" {
		return flagPIN, nil
	}

	fd := int(os.Stdin.Fd())
	if !isTerminal(fd) {
		return "", errors.New("--pin is required when stdin is not a terminal")
	}

	if _, err := fmt.Fprint(w, "PIN: "); err != nil {
		return "", err
	}
	pin, err := readPIN(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("failed to read PIN: %w", err)
	}

	return strings.TrimSpace(string(pin)), nil
}
