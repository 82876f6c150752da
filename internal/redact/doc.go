// Package redact removes secrets from diff bodies before they are displayed
// or written out.
//
// Detection uses regex heuristics covering common secret shapes: API keys,
// JWTs, private keys, AWS access key IDs and secret access keys, bearer
// tokens, and provider-specific tokens (Anthropic, OpenAI, GitHub, Slack).
// Only hunk body lines are scanned, and the leading +, - or space marker
// of each line is preserved so the result still reads as a diff. File
// headers are never touched.
//
// Path-based redaction is also supported: files whose original or new path
// matches a configured glob pattern have their entire body replaced with
// [REDACTED] rather than being scanned line by line.
package redact
