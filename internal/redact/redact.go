// Package redact strips secret-shaped tokens from free text before it is
// hashed, persisted, or embedded.
//
// Redaction is lossy and irreversible. Because it runs before content
// hashing, two submissions differing only in a secret value collapse to
// the same stored entry.
package redact

import "regexp"

// Sentinels substituted for each category of match.
const (
	SecretSentinel = "[SECRET]"
	JWTSentinel    = "[JWT]"
	EmailSentinel  = "[EMAIL]"
	IPSentinel     = "[IP]"
)

// rule pairs a compiled pattern with its replacement sentinel.
// Rules apply in order; earlier rules consume their matches before later
// ones run, so the JWT rule must precede the generic bearer rule.
type rule struct {
	pattern     *regexp.Regexp
	replacement string
}

// rules favors false positives over false negatives — better to redact
// too much than to let a real secret through to storage.
var rules = []rule{
	// API keys by provider prefix
	{regexp.MustCompile(`(?i)sk-ant-[a-zA-Z0-9\-]{20,}`), SecretSentinel}, // Anthropic
	{regexp.MustCompile(`(?i)sk-[a-zA-Z0-9]{20,}`), SecretSentinel},       // OpenAI
	{regexp.MustCompile(`AIza[a-zA-Z0-9\-_]{35}`), SecretSentinel},        // Google API
	{regexp.MustCompile(`(?i)ghp_[a-zA-Z0-9]{36}`), SecretSentinel},       // GitHub PAT
	{regexp.MustCompile(`(?i)gho_[a-zA-Z0-9]{36}`), SecretSentinel},       // GitHub OAuth
	{regexp.MustCompile(`(?i)github_pat_[a-zA-Z0-9_]{22,}`), SecretSentinel},
	{regexp.MustCompile(`AKIA[A-Z0-9]{16}`), SecretSentinel},                // AWS access key
	{regexp.MustCompile(`(?i)xox[bpsa]-[a-zA-Z0-9\-]{10,}`), SecretSentinel}, // Slack
	{regexp.MustCompile(`(?i)sk_(?:live|test)_[a-zA-Z0-9]{24,}`), SecretSentinel}, // Stripe

	// JWT triples (header.payload.signature)
	{regexp.MustCompile(`eyJ[a-zA-Z0-9_\-]+\.eyJ[a-zA-Z0-9_\-]+\.[a-zA-Z0-9_\-]+`), JWTSentinel},

	// Bearer tokens in headers
	{regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9\-_.]{20,}`), SecretSentinel},

	// Generic key=value assignments for common secret names
	{regexp.MustCompile(`(?i)(?:api[_-]?key|api[_-]?secret|access[_-]?token|secret[_-]?key|private[_-]?key|auth[_-]?token)\s*[:=]\s*["']?[a-zA-Z0-9\-_.]{16,}["']?`), SecretSentinel},

	// Email addresses
	{regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`), EmailSentinel},

	// IPv4 addresses
	{regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`), IPSentinel},
}

// Apply replaces every secret-shaped match in text with its category
// sentinel. The empty string passes through unchanged.
func Apply(text string) string {
	if text == "" {
		return ""
	}
	for _, r := range rules {
		text = r.pattern.ReplaceAllString(text, r.replacement)
	}
	return text
}

// ContainsSecrets reports whether text matches any known secret pattern.
func ContainsSecrets(text string) bool {
	for _, r := range rules {
		if r.pattern.MatchString(text) {
			return true
		}
	}
	return false
}
