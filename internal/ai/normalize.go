package ai

import (
	"regexp"
	"strings"
)

type rewrite struct {
	re   *regexp.Regexp
	repl string
}

// markdownRewrites run in order. Later rules rely on earlier ones having
// unwrapped emphasis, so the order must not change.
var markdownRewrites = []rewrite{
	{regexp.MustCompile("```[\\s\\S]*?```"), ""},
	{regexp.MustCompile("`([^`]*)`"), "$1"},
	{regexp.MustCompile(`\*\*([^*]+)\*\*`), "$1"},
	{regexp.MustCompile(`\*([^*]+)\*`), "$1"},
	{regexp.MustCompile(`_([^_]+)_`), "$1"},
	{regexp.MustCompile(`(?m)^#{1,6}\s+`), ""},
	{regexp.MustCompile(`(?m)^\s*[-*•·‣∙◦✔️✓]\s+`), ""},
	{regexp.MustCompile(`(?m)^\s*\d+[).]\s+`), ""},
	{regexp.MustCompile(`[•◆◦▪︎▸►–—]+`), " "},
	{regexp.MustCompile(`(?m)[ \t]+$`), ""},
	{regexp.MustCompile(`\n{3,}`), "\n\n"},
}

var (
	listMarker     = regexp.MustCompile(`^[-*•·‣∙◦✔️✓\d).\s]+`)
	whitespaceRuns = regexp.MustCompile(`\s{2,}`)
)

// Normalize strips markdown artifacts from model output so it can be shown
// where markdown is not rendered. Normalize(Normalize(s)) == Normalize(s).
func Normalize(text string) string {
	// Every rewrite only removes or shortens text, so repeating the pass
	// until nothing changes terminates.
	for {
		next := normalizeOnce(text)
		if next == text {
			return next
		}
		text = next
	}
}

func normalizeOnce(text string) string {
	if text == "" {
		return ""
	}
	for _, rw := range markdownRewrites {
		text = rw.re.ReplaceAllString(text, rw.repl)
	}
	return strings.TrimSpace(text)
}

// SanitizeListLines strips a leading list marker from every line, collapses
// whitespace runs and drops lines that end up empty.
func SanitizeListLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = listMarker.ReplaceAllString(line, "")
		line = whitespaceRuns.ReplaceAllString(line, " ")
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
