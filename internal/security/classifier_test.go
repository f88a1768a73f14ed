package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeywordClassifier(t *testing.T) {
	tests := []struct {
		name      string
		output    string
		exitCode  int
		wantClean bool
		want      map[Severity]int
	}{
		{
			name:      "zero findings phrase",
			output:    "audited 812 packages in 3s\n\nfound 0 vulnerabilities",
			exitCode:  0,
			wantClean: true,
		},
		{
			name:      "zero phrase wins over keywords",
			output:    "No vulnerabilities found (critical checks done)",
			exitCode:  1,
			wantClean: true,
		},
		{
			name:      "short output",
			output:    "   ok   ",
			exitCode:  1,
			wantClean: true,
		},
		{
			name:      "empty output",
			output:    "",
			exitCode:  0,
			wantClean: true,
		},
		{
			name:      "exit zero without keywords",
			output:    "audited 812 modules in 3s",
			exitCode:  0,
			wantClean: true,
		},
		{
			name:     "severity counts",
			output:   "lodash  Severity: critical\nminimist  Severity: critical\nsemver  Severity: moderate\n3 vulnerabilities (1 moderate, 2 critical)",
			exitCode: 1,
			want:     map[Severity]int{Critical: 2, Moderate: 1},
		},
		{
			name:     "repeated summary is not doubled",
			output:   "2 critical severity vulnerabilities\nfound 2 critical, 1 high",
			exitCode: 1,
			want:     map[Severity]int{Critical: 2, High: 1},
		},
		{
			name:     "numbered and unnumbered severities mix",
			output:   "1 high severity vulnerability\nlodash  Severity: low\nminimist  Severity: low",
			exitCode: 1,
			want:     map[Severity]int{High: 1, Low: 2},
		},
		{
			name:     "zero count is no finding",
			output:   "0 critical, 3 moderate issues in package tree",
			exitCode: 1,
			want:     map[Severity]int{Moderate: 3},
		},
		{
			name:     "case insensitive",
			output:   "Package foo has a HIGH severity issue",
			exitCode: 1,
			want:     map[Severity]int{High: 1},
		},
		{
			name:     "keywords but no severities",
			output:   "npm ERR! audit endpoint returned an error for package",
			exitCode: 1,
			want:     map[Severity]int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := KeywordClassifier{}.Classify(tt.output, tt.exitCode)
			assert.Equal(t, tt.wantClean, c.Clean)
			if tt.wantClean {
				assert.Empty(t, c.Findings)
				return
			}
			got := make(map[Severity]int)
			for _, f := range c.Findings {
				got[f.Severity] = f.Count
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKeywordClassifierIsStable(t *testing.T) {
	output := "2 critical, 1 moderate"
	first := KeywordClassifier{}.Classify(output, 1)
	second := KeywordClassifier{}.Classify(output, 1)
	assert.Equal(t, first, second)
	assert.Equal(t, 2, first.Count(Critical))
	assert.Equal(t, 1, first.Count(Moderate))
	assert.Equal(t, 0, first.Count(High))
}

func TestFindingsAreOrderedBySeverity(t *testing.T) {
	c := KeywordClassifier{}.Classify("low low moderate high critical package", 1)
	var order []Severity
	for _, f := range c.Findings {
		order = append(order, f.Severity)
	}
	assert.Equal(t, []Severity{Critical, High, Moderate, Low}, order)
}
