// Package parse pulls clues, verdicts and guesses out of free-form model
// responses. Parsing never fails: every function falls back to a documented
// default when the response doesn't say what it should.
package parse

import (
	"strings"

	"github.com/bcspragu/Switchboard"
)

const (
	// DefaultClue is used when a response names no clue.
	DefaultClue = "UNKNOWN"

	DefaultValidReason   = "Clue approved"
	DefaultInvalidReason = "Rule violation detected"
	FollowsRulesReason   = "Clue follows game rules"
)

// DefaultCount is used when a response has no usable count.
var DefaultCount = switchboard.Fixed(1)

// Clue reads a clue and count from a coach's response. It understands
// "CLUE: word" (or "PLAY: word") and "NUMBER: n" lines, and "word: n" lines.
// Later lines win over earlier ones.
func Clue(resp string) (string, switchboard.Count) {
	word, count := DefaultClue, DefaultCount

	for _, line := range lines(resp) {
		if v, ok := field(line, "CLUE", "PLAY"); ok {
			if w := unquote(v); w != "" {
				word = w
			}
			continue
		}
		if v, ok := field(line, "NUMBER", "COUNT"); ok {
			c, err := switchboard.ParseCount(v)
			if err != nil {
				c = DefaultCount
			}
			count = c
			continue
		}

		// "word: 3"
		parts := strings.Split(line, ":")
		if len(parts) != 2 {
			continue
		}
		num := strings.ToLower(strings.TrimSpace(parts[1]))
		if num == "unlimited" || isDigits(num) {
			w := unquote(parts[0])
			c, err := switchboard.ParseCount(num)
			if err != nil || w == "" {
				continue
			}
			word, count = w, c
		}
	}

	return word, count
}

// Verdict reads an adjudicator's response. A response that starts a line with
// VALID or INVALID decides the verdict; otherwise a "Foul:" line means the
// clue was rejected. Anything else is approved.
func Verdict(resp string) (bool, string) {
	ls := lines(resp)
	valid, reason := true, DefaultValidReason

	found := false
	for i, line := range ls {
		upper := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(upper, "VALID"):
			found = true
			valid, reason = true, FollowsRulesReason
			if _, after, ok := strings.Cut(line, ":"); ok && strings.TrimSpace(after) != "" {
				reason = strings.TrimSpace(after)
			}
		case strings.HasPrefix(upper, "INVALID"):
			found = true
			valid, reason = false, DefaultInvalidReason
			if _, after, ok := strings.Cut(line, ":"); ok && strings.TrimSpace(after) != "" {
				reason = strings.TrimSpace(after)
			} else {
				reason = reasonAfter(ls[i+1:])
			}
		default:
			continue
		}
		break
	}

	if !found {
		for _, line := range ls {
			if v, ok := field(line, "Foul"); ok {
				valid, reason = false, v
				break
			}
			if v, ok := field(line, "Reasoning"); ok {
				reason = v
			}
		}
	}

	if !valid && reason == DefaultInvalidReason {
		reason = violationHint(ls, reason)
	}
	return valid, reason
}

// reasonAfter finds the reasoning that follows a bare INVALID line.
func reasonAfter(ls []string) string {
	for _, line := range ls {
		if v, ok := field(line, "Foul", "Reasoning"); ok {
			return v
		}
		if !strings.HasPrefix(line, "#") && !strings.HasPrefix(line, "**") {
			return line
		}
	}
	return DefaultInvalidReason
}

var violationKeywords = []string{"multiple words", "exact match", "variant", "letter count", "position"}

func violationHint(ls []string, def string) string {
	for _, line := range ls {
		lower := strings.ToLower(line)
		for _, kw := range violationKeywords {
			if strings.Contains(lower, kw) {
				return line
			}
		}
	}
	return def
}

// Guesses reads a player's guesses out of its response. Only words in
// available count, matched case-insensitively and returned in the board's
// spelling, each at most once. The list is cut to what the count allows. If
// nothing matches, the first available word is guessed.
func Guesses(resp string, available []string, count switchboard.Count) []string {
	byKey := make(map[string]string, len(available))
	for _, w := range available {
		byKey[strings.ToUpper(w)] = w
	}

	var out []string
	seen := make(map[string]bool)
	add := func(key string) {
		w, ok := byKey[key]
		if !ok || seen[w] {
			return
		}
		seen[w] = true
		out = append(out, w)
	}

	for _, line := range lines(resp) {
		if strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}

		// Whole lines catch multi-word names like "LOCH NESS".
		whole := strings.ToUpper(strings.Trim(stripListMarker(line), cutset))
		if _, ok := byKey[whole]; ok {
			add(whole)
			continue
		}

		for _, tok := range strings.FieldsFunc(line, func(r rune) bool {
			return r == ' ' || r == '\t' || r == ',' || r == ';'
		}) {
			add(strings.ToUpper(strings.Trim(tok, cutset)))
		}
	}

	if len(out) == 0 && len(available) > 0 {
		out = []string{available[0]}
	}

	if max := count.MaxGuesses(len(available)); len(out) > max {
		out = out[:max]
	}
	return out
}

const cutset = ".,;:\"'()[]{}*`"

func lines(resp string) []string {
	var out []string
	for _, l := range strings.Split(strings.TrimSpace(resp), "\n") {
		l = strings.TrimSpace(l)
		// Models like to bold their labels.
		l = strings.TrimSpace(strings.ReplaceAll(l, "**", ""))
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}

// field returns the value of a "Name: value" line, for any of the names.
// Names match case-insensitively.
func field(line string, names ...string) (string, bool) {
	name, val, ok := strings.Cut(line, ":")
	if !ok {
		return "", false
	}
	name = strings.TrimSpace(name)
	for _, n := range names {
		if strings.EqualFold(name, n) {
			return strings.TrimSpace(val), true
		}
	}
	return "", false
}

func unquote(s string) string {
	return strings.Trim(strings.TrimSpace(s), "\"'")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// stripListMarker drops a leading "1." or "-" from a list item.
func stripListMarker(line string) string {
	line = strings.TrimLeft(line, "-• ")
	if i := strings.IndexAny(line, ".)"); i > 0 && isDigits(line[:i]) {
		line = line[i+1:]
	}
	return strings.TrimSpace(line)
}
