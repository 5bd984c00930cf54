// Package redact strips sensitive values from uploaded log text before it is
// fingerprinted or sent to an analyzer.
//
// Rules run in a fixed order: IPv4 addresses, email addresses, labelled
// secrets, and (opt-in) file paths. Each match is replaced by a bracketed
// marker such as [REDACTED_IP]. Markers contain no digits, no '@', no
// assignment syntax and no slashes, so no rule can match a marker and
// redaction is idempotent.
//
// Detection is regex-based and heuristic. It will miss secrets that do not
// fit the shapes below and will occasionally redact harmless text.
package redact
