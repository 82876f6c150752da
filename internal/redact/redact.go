package redact

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/reviewboard/rbdiff/internal/review"
)

const placeholder = "[REDACTED]"

// pathPolicyBody replaces the whole diff body of a file matched by a
// redaction path pattern.
const pathPolicyBody = placeholder + " (file content redacted by path policy)\n"

// secretPatterns are regex heuristics for common secret types.
var secretPatterns = []*regexp.Regexp{
	// Generic API keys (long hex/base64 strings after common key patterns)
	regexp.MustCompile(`(?i)(api[_-]?key|apikey|api[_-]?secret)\s*[:=]\s*["']?([A-Za-z0-9/+=_-]{20,})["']?`),
	// AWS access key IDs
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
	// AWS secret access keys
	regexp.MustCompile(`(?i)(aws[_-]?secret[_-]?access[_-]?key)\s*[:=]\s*["']?([A-Za-z0-9/+=]{40})["']?`),
	// Generic secrets/tokens/passwords in assignments
	regexp.MustCompile(`(?i)(secret|token|password|passwd|credential)\s*[:=]\s*["']([^"']{8,})["']`),
	// Bearer tokens
	regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9._-]{20,}`),
	// JWTs (three base64 segments separated by dots)
	regexp.MustCompile(`eyJ[A-Za-z0-9_-]{10,}\.eyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}`),
	// Private key blocks
	regexp.MustCompile(`-----BEGIN\s+(RSA\s+|EC\s+|OPENSSH\s+)?PRIVATE KEY-----`),
	// GitHub tokens
	regexp.MustCompile(`gh[pousr]_[A-Za-z0-9_]{36,}`),
	// Slack tokens
	regexp.MustCompile(`xox[bporas]-[A-Za-z0-9-]{10,}`),
	// Anthropic API keys
	regexp.MustCompile(`sk-ant-[A-Za-z0-9_-]{20,}`),
	// OpenAI API keys
	regexp.MustCompile(`sk-[A-Za-z0-9]{20,}`),
	// Generic long hex strings that look like secrets (32+ chars in an assignment)
	regexp.MustCompile(`(?i)(key|secret|token)\s*[:=]\s*["']?[0-9a-f]{32,}["']?`),
}

// Secrets replaces detected secrets in text with [REDACTED].
func Secrets(text string) string {
	result := text
	for _, pat := range secretPatterns {
		result = pat.ReplaceAllString(result, placeholder)
	}
	return result
}

// ShouldRedactPath checks if a file path matches any of the redaction path patterns.
func ShouldRedactPath(path string, patterns []string) bool {
	for _, pattern := range patterns {
		matched, err := filepath.Match(pattern, path)
		if err == nil && matched {
			return true
		}
		// Also try matching just the filename for patterns like "**/.env"
		cleanPattern := strings.TrimPrefix(pattern, "**/")
		if cleanPattern != pattern {
			base := filepath.Base(path)
			matched, err = filepath.Match(cleanPattern, base)
			if err == nil && matched {
				return true
			}
		}
	}
	return false
}

// Diff redacts secrets in the body lines of a hunk payload. Only the text
// after a '+', '-' or ' ' marker is scanned; hunk headers, "\ No newline"
// markers and the markers themselves are left alone.
func Diff(body string) string {
	if body == "" {
		return body
	}
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		if line == "" {
			continue
		}
		switch line[0] {
		case '+', '-', ' ':
			lines[i] = line[:1] + Secrets(line[1:])
		}
	}
	return strings.Join(lines, "\n")
}

// Entry redacts one report entry in place and reports whether anything
// changed. Files matching redactPaths lose their whole body; other text
// bodies have secrets removed line by line. Headers are never rewritten.
func Entry(e *review.FileEntry, redactPaths []string) bool {
	if e.Diff == "" {
		return false
	}
	if ShouldRedactPath(e.NewPath, redactPaths) || ShouldRedactPath(e.OrigPath, redactPaths) {
		e.Diff = pathPolicyBody
		e.RawDiff = nil
		e.Redacted = true
		return true
	}
	if e.IsBinary {
		return false
	}
	redacted := Diff(e.Diff)
	if redacted == e.Diff {
		return false
	}
	e.Diff = redacted
	e.RawDiff = nil
	e.Redacted = true
	return true
}

// Report redacts every file entry of r and returns how many changed.
func Report(r *review.Report, redactPaths []string) int {
	var n int
	for i := range r.Files {
		if Entry(&r.Files[i], redactPaths) {
			n++
		}
	}
	return n
}
