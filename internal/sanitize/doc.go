// Package sanitize provides secret detection and redaction using gitleaks.
//
// Customer request text arrives through the HTTP API, the CLI, and the
// inputs watcher, and from there flows into model prompts and on-disk
// artifacts. Scrub runs in front of that flow. Results preserve rule IDs,
// positions, and counts while the matched values are dropped, so findings
// stay safe to log and persist.
package sanitize
