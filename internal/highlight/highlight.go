package highlight

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

var ansiCSI = regexp.MustCompile(`\x1b\[[0-?]*[ -/]*[@-~]`)

type Result struct {
	Text      string
	Count     int
	LineIndex []int
}

// Terms splits each value into search words, dropping duplicates and
// surrounding punctuation. Case is folded at match time.
func Terms(values ...string) []string {
	seen := map[string]bool{}
	var out []string
	for _, v := range values {
		for _, f := range strings.FieldsFunc(v, func(r rune) bool {
			return unicode.IsSpace(r) || r == ','
		}) {
			f = strings.Trim(f, `"'()[]{}`)
			key := strings.ToLower(f)
			if f == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, f)
		}
	}
	return out
}

// Compile builds a case-insensitive matcher preferring the longest term at
// each position. It returns nil when there is nothing to match.
func Compile(terms []string) *regexp.Regexp {
	uniq := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.TrimSpace(t); t != "" {
			uniq = append(uniq, regexp.QuoteMeta(t))
		}
	}
	if len(uniq) == 0 {
		return nil
	}
	sort.SliceStable(uniq, func(i, j int) bool { return len(uniq[i]) > len(uniq[j]) })
	return regexp.MustCompile(`(?i)(?:` + strings.Join(uniq, "|") + `)`)
}

// ApplyANSI wraps every occurrence of any term in input, leaving ANSI escape
// sequences untouched. Matches never span an escape sequence.
func ApplyANSI(input string, terms []string, wrap func(string) string) Result {
	re := Compile(terms)
	if re == nil {
		return Result{Text: input}
	}
	if wrap == nil {
		wrap = func(s string) string { return s }
	}

	lines := strings.SplitAfter(input, "\n")

	var out strings.Builder
	lineMatches := make([]int, 0, 64)
	total := 0

	for lineNo, line := range lines {
		core, hasNewline := strings.CutSuffix(line, "\n")
		rendered, count := applyToANSIText(core, re, wrap)
		out.WriteString(rendered)
		if hasNewline {
			out.WriteByte('\n')
		}
		if count > 0 {
			lineMatches = append(lineMatches, lineNo)
			total += count
		}
	}

	return Result{
		Text:      out.String(),
		Count:     total,
		LineIndex: lineMatches,
	}
}

func applyToANSIText(s string, re *regexp.Regexp, wrap func(string) string) (string, int) {
	indices := ansiCSI.FindAllStringIndex(s, -1)
	if len(indices) == 0 {
		return applyToPlain(s, re, wrap)
	}

	var out strings.Builder
	total := 0
	pos := 0
	for _, idx := range indices {
		if idx[0] > pos {
			plain, count := applyToPlain(s[pos:idx[0]], re, wrap)
			out.WriteString(plain)
			total += count
		}
		out.WriteString(s[idx[0]:idx[1]])
		pos = idx[1]
	}
	if pos < len(s) {
		plain, count := applyToPlain(s[pos:], re, wrap)
		out.WriteString(plain)
		total += count
	}
	return out.String(), total
}

func applyToPlain(s string, re *regexp.Regexp, wrap func(string) string) (string, int) {
	if s == "" {
		return s, 0
	}
	count := 0
	out := re.ReplaceAllStringFunc(s, func(m string) string {
		count++
		return wrap(m)
	})
	return out, count
}
