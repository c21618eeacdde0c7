package tools

import (
	"os"
	"regexp"
	"strings"
)

// RedactEnv holds comma/semicolon separated regexes or literals to mask in audit lines.
const RedactEnv = "TRELLIS_REDACT"

const redacted = "***REDACTED***"

// redactSensitiveStrings applies redactSensitiveString to each element and returns a new slice.
func redactSensitiveStrings(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = redactSensitiveString(v)
	}
	return out
}

// redactSensitiveString masks configured patterns and the values of
// secret-looking environment variables.
func redactSensitiveString(s string) string {
	if s == "" {
		return s
	}
	patterns := gatherRedactionPatterns(os.Environ())
	for _, rx := range patterns.regexps {
		s = rx.ReplaceAllString(s, redacted)
	}
	for _, lit := range patterns.literals {
		if lit == "" {
			continue
		}
		s = strings.ReplaceAll(s, lit, redacted)
	}
	return s
}

type redactionPatterns struct {
	regexps  []*regexp.Regexp
	literals []string
}

// gatherRedactionPatterns builds redaction patterns from environ. Entries of
// TRELLIS_REDACT that do not compile as regexes are treated as literals. Values
// of variables whose names contain KEY, TOKEN, SECRET or PASSWORD are masked
// as literals.
func gatherRedactionPatterns(environ []string) redactionPatterns {
	var pats redactionPatterns
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || v == "" {
			continue
		}
		if k == RedactEnv {
			fields := strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ';' })
			for _, f := range fields {
				f = strings.TrimSpace(f)
				if f == "" {
					continue
				}
				if rx, err := regexp.Compile(f); err == nil {
					pats.regexps = append(pats.regexps, rx)
				} else {
					pats.literals = append(pats.literals, f)
				}
			}
			continue
		}
		if isSecretName(k) && len(v) >= 4 {
			pats.literals = append(pats.literals, v)
		}
	}
	return pats
}

func isSecretName(name string) bool {
	upper := strings.ToUpper(name)
	for _, marker := range []string{"KEY", "TOKEN", "SECRET", "PASSWORD"} {
		if strings.Contains(upper, marker) {
			return true
		}
	}
	return false
}
