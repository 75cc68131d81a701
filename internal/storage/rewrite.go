package storage

import (
	"regexp"
	"sort"
	"strings"
)

// rewriteTokens replaces every whole-token occurrence of a key from
// replacements with its mapped value, in one pass over text. Keys are
// tried longest-first so a key that is a prefix of another (e.g. a host
// external id "sensor.power" next to "sensor.power_meter") never wins a
// match that should have gone to the longer one.
//
// This operates purely on formula text, independent of the parser: a
// host-assigned external id routinely contains a `.`, which the formula
// grammar treats as member-access syntax rather than part of an
// identifier, so rewriting through a parsed AST would split
// "sensor.raw_power" into a receiver/attribute pair instead of treating it
// as the single opaque token the Storage collaborator needs it to be
// (§6 "Persisted state layout" is opaque to the core by design).
func rewriteTokens(text string, replacements map[string]string) string {
	if len(replacements) == 0 {
		return text
	}
	keys := make([]string, 0, len(replacements))
	for k := range replacements {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })

	quoted := make([]string, len(keys))
	for i, k := range keys {
		quoted[i] = regexp.QuoteMeta(k)
	}
	pattern := regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)\b`)

	return pattern.ReplaceAllStringFunc(text, func(match string) string {
		return replacements[match]
	})
}
