package bill

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const (
	// MaxSimplifiedLen bounds the simplified description, in characters.
	MaxSimplifiedLen = 200
	// EllipsisMarker is appended to truncated text.
	EllipsisMarker = "..."
)

type replacement struct {
	pattern *regexp.Regexp
	with    string
}

// Applied in order over the whole text.
var simplifications = []replacement{
	{regexp.MustCompile(`(?i)Altera a Lei nº? \d+\.?\d*/?\d*`), "Modifica uma lei que"},
	{regexp.MustCompile(`(?i)Dispõe sobre`), "Trata de"},
	{regexp.MustCompile(`(?i)no âmbito`), "no contexto"},
	{regexp.MustCompile(`(?i)institui`), "cria"},
	{regexp.MustCompile(`(?i)estabelece diretrizes`), "define regras"},
	{regexp.MustCompile(`(?i)e dá outras providências\.?`), ""},
}

// Simplify rewrites legal boilerplate into plain language and bounds the
// result to MaxSimplifiedLen characters plus the ellipsis marker.
func Simplify(legalText string) string {
	s := norm.NFC.String(legalText)
	for _, r := range simplifications {
		s = r.pattern.ReplaceAllLiteralString(s, r.with)
	}
	s = strings.TrimSpace(s)
	return truncate(s, MaxSimplifiedLen)
}

// truncate cuts s to n runes and appends EllipsisMarker when it was longer.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + EllipsisMarker
}
