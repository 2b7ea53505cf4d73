package command

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// triggers are the recognized phrases, checked after the bot mention.
// Order matters only for documentation; the earliest occurrence in the
// comment wins regardless of which phrase it is.
var triggers = []struct {
	phrase string
	intent Intent
}{
	{"add labels", IntentAdd},
	{"remove labels", IntentRemove},
	{"update labels", IntentUpdate},
}

// Parse extracts at most one command from raw comment text.
//
// A command is recognized when the text contains the bot mention handle
// (case-insensitive) followed, anywhere after it, by one of the trigger
// phrases and then a bracketed, comma-separated label list. Text like
// "please" or a colon between the phrase and the list is tolerated because
// only the bracket pair delimits the list.
//
// The second return value is false when the comment is not a bot command:
// missing mention, no trigger phrase after the mention, or a missing or
// malformed bracket list. That is the expected case for most comments and
// is not an error. If several trigger phrases appear, only the first is
// honored so one comment carries at most one intent.
func Parse(text, handle string) (*Command, bool) {
	if handle == "" {
		return nil, false
	}

	// Matching is done by folding runes in place rather than lowering a
	// copy: case mapping can change a rune's UTF-8 width, so offsets into
	// a lowered copy do not index the original text.
	_, mentionEnd := foldIndex(text, handle)
	if mentionEnd < 0 {
		return nil, false
	}

	tail := text[mentionEnd:]

	first := -1
	phraseEnd := 0
	var intent Intent
	for _, t := range triggers {
		if start, end := foldIndex(tail, t.phrase); start >= 0 && (first < 0 || start < first) {
			first = start
			phraseEnd = end
			intent = t.intent
		}
	}
	if first < 0 {
		return nil, false
	}

	labels, ok := parseBracketList(tail[phraseEnd:])
	if !ok || len(labels) == 0 {
		return nil, false
	}

	return &Command{Intent: intent, Labels: labels}, true
}

// foldIndex returns the byte offsets [start, end) of the first
// case-insensitive occurrence of substr in s, or (-1, -1). The offsets
// index s itself, so the match region is safe to slice around even when
// case mapping changes rune widths between s and substr.
func foldIndex(s, substr string) (start, end int) {
	if substr == "" {
		return 0, 0
	}
	for i := 0; i < len(s); {
		if n, ok := foldMatch(s[i:], substr); ok {
			return i, i + n
		}
		_, w := utf8.DecodeRuneInString(s[i:])
		i += w
	}
	return -1, -1
}

// foldMatch reports whether s begins with a case-insensitive match of
// substr, returning the matched byte length in s.
func foldMatch(s, substr string) (int, bool) {
	j := 0
	for _, pr := range substr {
		sr, w := utf8.DecodeRuneInString(s[j:])
		if w == 0 || !equalFoldRune(sr, pr) {
			return 0, false
		}
		j += w
	}
	return j, true
}

func equalFoldRune(a, b rune) bool {
	if a == b {
		return true
	}
	for r := unicode.SimpleFold(a); r != a; r = unicode.SimpleFold(r) {
		if r == b {
			return true
		}
	}
	return false
}

// parseBracketList extracts the comma-separated tokens between the first
// "[" and the first "]" after it. A "[" inside the pair means the brackets
// are unbalanced and the whole list is treated as unparseable. Tokens are
// trimmed, runs of inner whitespace collapse to one space, and empty tokens
// are dropped.
func parseBracketList(s string) ([]string, bool) {
	open := strings.IndexByte(s, '[')
	if open < 0 {
		return nil, false
	}
	closing := strings.IndexByte(s[open+1:], ']')
	if closing < 0 {
		return nil, false
	}

	inner := s[open+1 : open+1+closing]
	if strings.Contains(inner, "[") {
		return nil, false
	}

	var labels []string
	for _, tok := range strings.Split(inner, ",") {
		tok = strings.Join(strings.Fields(tok), " ")
		if tok != "" {
			labels = append(labels, tok)
		}
	}
	return labels, true
}
