package log

import (
	"strings"
)

// controlCharReplacer escapes control characters that can be used for log
// injection (CWE-117): newlines and carriage returns in attacker-influenced
// strings can forge fake log entries.
var controlCharReplacer = strings.NewReplacer(
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

// Sanitize escapes control characters in a string destined for a log
// entry. Apply it to attacker-influenced values (request headers, query
// parameters) before they enter a Context or a log field.
func Sanitize(s string) string {
	return controlCharReplacer.Replace(s)
}
