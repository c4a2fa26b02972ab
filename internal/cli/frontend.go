package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/openpst/go-qcboot/internal/interfaces"
)

var (
	_ interfaces.Confirmer    = (*TerminalFrontend)(nil)
	_ interfaces.PathSelector = (*TerminalFrontend)(nil)
	_ interfaces.Observer     = (*TerminalFrontend)(nil)
)

// TerminalFrontend implements internal/interfaces' Confirmer,
// PathSelector, and Observer against the controlling terminal,
// colorized with github.com/fatih/color the way the teacher's CLI
// repo (thiagojdb-adoctl) renders status output.
type TerminalFrontend struct {
	in      *bufio.Reader
	lastPct int
}

// NewTerminalFrontend returns a frontend reading prompts from stdin.
func NewTerminalFrontend() *TerminalFrontend {
	return &TerminalFrontend{in: bufio.NewReader(os.Stdin), lastPct: -1}
}

// Confirm asks a yes/no question on stdout, reading the answer from
// stdin. Only "y"/"yes" (case-insensitive) count as yes.
func (f *TerminalFrontend) Confirm(prompt string) (bool, error) {
	color.Yellow("%s [y/N]: ", prompt)
	line, err := f.in.ReadString('\n')
	if err != nil {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

// SelectPath prompts for a filesystem path of the given kind (e.g.
// "image to send", "memory dump destination"); filters is advisory
// and only shown to the operator, never enforced.
func (f *TerminalFrontend) SelectPath(kind string, filters []string) (string, bool, error) {
	if len(filters) > 0 {
		color.Cyan("Select %s (%s), or leave blank to cancel: ", kind, strings.Join(filters, ", "))
	} else {
		color.Cyan("Select %s, or leave blank to cancel: ", kind)
	}
	line, err := f.in.ReadString('\n')
	if err != nil {
		return "", false, err
	}
	path := strings.TrimSpace(line)
	if path == "" {
		return "", true, nil
	}
	return path, false, nil
}

// OnProgress renders a single-line, overwriting progress indicator.
// Repeated calls at the same percentage are suppressed to avoid
// flooding a redirected log file with identical lines.
func (f *TerminalFrontend) OnProgress(current, total int64, label string) {
	pct := 0
	if total > 0 {
		pct = int(current * 100 / total)
	}
	if pct == f.lastPct {
		return
	}
	f.lastPct = pct
	fmt.Fprintf(os.Stderr, "\r%s %s %d/%d bytes (%d%%)", color.GreenString("[%s]", label), barString(pct), current, total, pct)
	if pct >= 100 {
		fmt.Fprintln(os.Stderr)
	}
}

func barString(pct int) string {
	const width = 20
	filled := pct * width / 100
	if filled > width {
		filled = width
	}
	return "[" + strings.Repeat("=", filled) + strings.Repeat(" ", width-filled) + "]"
}
