package automation

import "regexp"

// Redaction markers. Applying the redaction pass to already-redacted content
// is a no-op: the markers contain neither email addresses nor digit runs.
const (
	RedactedMarker = "[REDACTED]"
	EmailMarker    = "[EMAIL]"
	NumberMarker   = "[NUMBER]"
)

var (
	emailRe         = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	digitRunRe      = regexp.MustCompile(`[0-9]{6,}`)
	sensitiveNameRe = regexp.MustCompile(`(?i)token|password|secret`)
)

// RedactText replaces email addresses with [EMAIL] and digit runs of length
// >= 6 with [NUMBER]. Emails are replaced first so their digit portions are
// never double-counted. Idempotent.
func RedactText(s string) string {
	s = emailRe.ReplaceAllString(s, EmailMarker)
	return digitRunRe.ReplaceAllString(s, NumberMarker)
}

// RedactFormField sanitizes one form control descriptor. Password fields,
// fields whose name looks credential-bearing, and any field carrying a
// non-empty value get their value replaced with [REDACTED].
func RedactFormField(field FormField) FormField {
	if field.Type == "password" || sensitiveNameRe.MatchString(field.Name) || field.Value != "" {
		field.Value = RedactedMarker
	}
	return field
}
