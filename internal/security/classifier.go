package security

import (
	"regexp"
	"strconv"
	"strings"
)

// Severity is a vulnerability severity bucket.
type Severity string

const (
	Critical Severity = "critical"
	High     Severity = "high"
	Moderate Severity = "moderate"
	Low      Severity = "low"
)

// Severities lists the buckets from most to least severe.
var Severities = []Severity{Critical, High, Moderate, Low}

// Finding is the number of occurrences of one severity.
type Finding struct {
	Severity Severity `json:"severity" yaml:"severity"`
	Count    int      `json:"count" yaml:"count"`
}

// Classification is what a Classifier concludes from raw scan output.
type Classification struct {
	Clean    bool
	Findings []Finding
}

// Count returns the count for s, or zero.
func (c Classification) Count(s Severity) int {
	for _, f := range c.Findings {
		if f.Severity == s {
			return f.Count
		}
	}
	return 0
}

// Classifier turns unstructured scan output into a classification.
type Classifier interface {
	Classify(output string, exitCode int) Classification
}

// minInformativeLength is the trimmed output length below which the scan
// is treated as having nothing to report.
const minInformativeLength = 10

var (
	zeroFindingPhrases = []string{
		"found 0 vulnerabilities",
		"0 vulnerabilities",
		"no vulnerabilities found",
		"0 known vulnerabilities",
	}
	vulnerabilityKeywords = []string{"critical", "high", "moderate", "low", "vulnerability", "package"}

	// numberedSeverity matches summaries such as "2 critical" or "1 high severity".
	numberedSeverity = regexp.MustCompile(`\b(\d+)\s+(critical|high|moderate|low)\b`)
)

// KeywordClassifier is the text heuristic. Output is clean when any of
// these hold, checked in order:
//   - it contains a known zero-findings phrase
//   - it is shorter than minInformativeLength once trimmed
//   - the exit code is 0 and no vulnerability keyword appears
//
// Otherwise each severity takes the largest number reported directly before
// it, as in "3 vulnerabilities (1 moderate, 2 critical)". A severity with no
// such number falls back to counting case-insensitive keyword occurrences,
// which is approximate: "high" also matches "highlight".
type KeywordClassifier struct{}

// Classify implements Classifier.
func (KeywordClassifier) Classify(output string, exitCode int) Classification {
	trimmed := strings.TrimSpace(output)
	lower := strings.ToLower(trimmed)

	for _, phrase := range zeroFindingPhrases {
		if strings.Contains(lower, phrase) {
			return Classification{Clean: true}
		}
	}
	if len(trimmed) < minInformativeLength {
		return Classification{Clean: true}
	}
	if exitCode == 0 && !containsAny(lower, vulnerabilityKeywords) {
		return Classification{Clean: true}
	}

	reported := reportedCounts(lower)
	var findings []Finding
	for _, s := range Severities {
		n, ok := reported[s]
		if !ok {
			n = strings.Count(lower, string(s))
		}
		if n > 0 {
			findings = append(findings, Finding{Severity: s, Count: n})
		}
	}
	return Classification{Findings: findings}
}

// reportedCounts returns, per severity, the largest count written in front
// of it. A repeated summary line therefore does not double the count.
func reportedCounts(lower string) map[Severity]int {
	counts := make(map[Severity]int)
	for _, m := range numberedSeverity.FindAllStringSubmatch(lower, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		s := Severity(m[2])
		if cur, ok := counts[s]; !ok || n > cur {
			counts[s] = n
		}
	}
	return counts
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
