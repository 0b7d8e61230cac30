package filing

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// ConstraintKeywords is the constraint language counted in a filing
var ConstraintKeywords = []string{"shortage", "backlog", "capacity", "supply chain", "bottleneck"}

const (
	// DescriptionLimit is the maximum description length before the ellipsis
	DescriptionLimit = 1000
	minSentenceLen   = 40
	tocProbeLen      = 120
)

var (
	reItemOneBusiness = regexp.MustCompile(`(?i)item\s*1\s*[.:\-–—]?\s*business`)
	reNextItem        = regexp.MustCompile(`(?i)\bitem\s*1[abc]\b`)
	// page number right after the heading
	reTOCPage = regexp.MustCompile(`^[\s.\-–—|]*\d{1,4}\b`)
	// heading followed by the next heading
	reTOCNextItem = regexp.MustCompile(`(?i)^[\s\d.\-–—|]*item\s*1[abc]\b`)

	reWeAre    = regexp.MustCompile(`(?i)\bwe are (?:a|an|the)\b[^.]{10,}\.`)
	reDoesWhat = regexp.MustCompile(`(?i)[^.]{0,200}\b(?:designs|develops|manufactures|provides)\b[^.]{0,300}\b(?:products|solutions|services)\b[^.]{0,200}\.`)

	boilerplate = []string{
		"table of contents",
		"forward-looking statements",
		"incorporated herein by reference",
		"index to consolidated financial statements",
	}
)

// Signals is what a filing says about the business and its constraints
type Signals struct {
	KeywordCount        int
	BusinessDescription string
}

// Scan counts constraint keywords and extracts a business description.
// Nothing here fails; unparseable text yields zero values.
func Scan(text string) Signals {
	return Signals{
		KeywordCount:        CountKeywords(text),
		BusinessDescription: BusinessDescription(text),
	}
}

// CountKeywords counts case-insensitive, non-overlapping keyword occurrences
func CountKeywords(text string) int {
	lower := strings.ToLower(text)
	n := 0
	for _, kw := range ConstraintKeywords {
		n += strings.Count(lower, kw)
	}
	return n
}

// BusinessDescription finds the narrative under the Item 1 Business heading,
// falling back to company-description sentences anywhere in the text.
func BusinessDescription(text string) string {
	desc := fromBusinessSection(text)
	if desc == "" {
		desc = fromPatterns(text)
	}
	desc = strings.ToValidUTF8(desc, "")
	return truncate(strings.TrimSpace(desc), DescriptionLimit)
}

func fromBusinessSection(text string) string {
	matches := reItemOneBusiness.FindAllStringIndex(text, -1)
	for i, m := range matches {
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		segment := text[m[1]:end]
		if isTOCEntry(segment) {
			continue
		}
		if desc := collectSentences(segment); desc != "" {
			return desc
		}
	}
	return ""
}

func isTOCEntry(segment string) bool {
	probe := segment
	if len(probe) > tocProbeLen {
		probe = probe[:tocProbeLen]
	}
	return reTOCPage.MatchString(probe) || reTOCNextItem.MatchString(probe)
}

func collectSentences(segment string) string {
	var b strings.Builder
	for _, s := range splitSentences(segment) {
		if reNextItem.MatchString(s) {
			break
		}
		if !qualifies(s) {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(s)
		if b.Len() >= DescriptionLimit {
			break
		}
	}
	return b.String()
}

func qualifies(sentence string) bool {
	if len(sentence) < minSentenceLen {
		return false
	}
	lower := strings.ToLower(sentence)
	for _, phrase := range boilerplate {
		if strings.Contains(lower, phrase) {
			return false
		}
	}
	return true
}

// splitSentences cuts after '.', '!' or '?' followed by whitespace
func splitSentences(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text)-1; i++ {
		switch text[i] {
		case '.', '!', '?':
			if text[i+1] == ' ' || text[i+1] == '\n' || text[i+1] == '\t' {
				if s := strings.TrimSpace(text[start : i+1]); s != "" {
					out = append(out, s)
				}
				start = i + 1
			}
		}
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

func fromPatterns(text string) string {
	for _, re := range []*regexp.Regexp{reWeAre, reDoesWhat} {
		for _, m := range re.FindAllString(text, -1) {
			if m = strings.TrimSpace(m); qualifies(m) {
				return m
			}
		}
	}
	return ""
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:limit])) + "..."
}
