package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// resolvePassword returns flagValue when set. Otherwise it prompts without
// echo when in is a terminal, and returns "" (no authentication) when not.
func resolvePassword(flagValue string, in *os.File, prompt io.Writer) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return "", nil
	}
	fmt.Fprint(prompt, "VIIPER API password (empty for none): ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(prompt)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}
