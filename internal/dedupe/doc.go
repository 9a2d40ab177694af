// Package dedupe suppresses repeated command submissions that arrive within a
// short window, such as a double-clicked send button or a retried request.
package dedupe
