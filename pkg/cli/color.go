package cli

import (
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

const (
	ansiReset = "\x1b[0m"
	ansiBold  = "\x1b[1m"
	ansiDim   = "\x1b[2m"
	ansiCyan  = "\x1b[36m"
)

// useColor resolves a color setting (auto, always, never) for w.
func useColor(setting string, w io.Writer) bool {
	switch setting {
	case "always":
		return true
	case "never":
		return false
	}
	// NO_COLOR convention: https://no-color.org/
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// colorize highlights a disassembly listing: headers bold, offsets dim and
// opcode names cyan.
func colorize(listing string) string {
	var sb strings.Builder
	for _, line := range strings.SplitAfter(listing, "\n") {
		if line == "" {
			continue
		}
		body := strings.TrimSuffix(line, "\n")
		nl := line[len(body):]
		switch {
		case strings.HasPrefix(body, "=="):
			sb.WriteString(ansiBold + body + ansiReset)
		case len(body) > 5 && body[4] == ' ' && isDigits(body[:4]):
			rest := body[5:]
			name, args, _ := strings.Cut(rest, " ")
			sb.WriteString(ansiDim + body[:4] + ansiReset + " " + ansiCyan + name + ansiReset)
			if args != "" {
				sb.WriteString(" " + args)
			}
		default:
			sb.WriteString(body)
		}
		sb.WriteString(nl)
	}
	return sb.String()
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
