// Package parsing recovers structure from semi-structured exam text.
//
// Question papers and answer sheets arrive as free text, often produced by a
// vision model, so every parser here is a cascade of heuristics. Each stage
// of a cascade is a named strategy; strategies are tried in order and the
// first one that produces a non-empty result wins. Parsing never fails:
// finding nothing is a valid result that callers resolve with documented
// defaults.
package parsing

import (
	"log/slog"
	"strings"
)

// strategy is one stage of a parsing cascade. run reports whether it found
// anything; a false result passes the text to the next stage.
type strategy[T any] struct {
	name string
	run  func(text string) (T, bool)
}

// firstMatch runs the chain and returns the first successful result together
// with the name of the strategy that produced it.
func firstMatch[T any](text string, chain []strategy[T]) (T, string, bool) {
	for _, s := range chain {
		if out, ok := s.run(text); ok {
			return out, s.name, true
		}
	}
	var zero T
	return zero, "", false
}

// normalizeNewlines converts CRLF and lone CR line endings to LF so that
// multiline patterns behave the same on text from any platform.
func normalizeNewlines(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}

func logger() *slog.Logger {
	return slog.Default().With("component", "parsing")
}
