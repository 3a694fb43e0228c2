package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/chainkeeper/internal/common"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
// In tests you can replace it with a stub to avoid touching the terminal.
var readPassword = term.ReadPassword

// GetSimpleText prints a prompt to w and reads a single line of input from reader.
// The trailing newline is trimmed. If EOF occurs after some input was read,
// the partial line is returned.
//
// Example prompt format:
//
//	Prompt text
//	> _
func GetSimpleText(reader *bufio.Reader, prompt string, w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, prompt+"\n> "); err != nil {
		return "", err
	}
	line, err := reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// GetPassword prints prompt to w and reads a password from the user's
// terminal without echo. A newline is printed after the read to keep the UI
// tidy.
//
// The returned byte slice should be wiped by the caller when no longer needed.
func GetPassword(w io.Writer, prompt string) ([]byte, error) {
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return nil, err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return nil, err
	}
	return pw, nil
}

// GetPairs prints prompt to w and reads lines in "name=value" form, one per
// line, ending on an empty line or EOF. The raw lines are returned unchanged;
// use ParsePairs to turn them into a map.
func GetPairs(reader *bufio.Reader, prompt string, w io.Writer) ([]string, error) {
	if _, err := fmt.Fprintln(w, prompt+" in the format name=value (empty line to finish)"); err != nil {
		return nil, err
	}

	lines := make([]string, 0)
	for {
		line, err := reader.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if line != "" {
			lines = append(lines, line)
		}
		if line == "" || err != nil {
			break
		}
	}
	return lines, nil
}

// ParsePairs converts "name=value" items into a map. Names are trimmed, values
// are kept verbatim and a later duplicate name wins. An item without '=' or
// with an empty name yields common.ErrorValidation.
func ParsePairs(items []string) (map[string]any, error) {
	out := make(map[string]any, len(items))
	for _, item := range items {
		name, value, ok := strings.Cut(item, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: expected name=value, got %q", common.ErrorValidation, item)
		}
		out[name] = value
	}
	return out, nil
}
