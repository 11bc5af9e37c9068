// Package markdown decides whether streaming markdown text is in a safe
// state to hand to a renderer. Text arriving mid-token (an unclosed **bold,
// a half-typed link URL, an open code fence) renders as visible garbage and
// then reflows once the closing marker arrives; callers use Complete to
// defer rendering until the tail of the buffer is syntactically settled.
package markdown

import "strings"

// Options control the two policy choices that change what counts as
// complete. The zero value is NOT the default; use DefaultOptions.
type Options struct {
	// RequireLinkURL keeps a link span open when its closing bracket is
	// not immediately followed by "(". Under this policy "[see here]" is
	// still incomplete: the text may grow into "[see here](url)". Turning
	// it off treats a closed bracket pair as complete, which accepts
	// reference-style links sooner but publishes "[label](" fragments as
	// literal text if a URL does follow.
	RequireLinkURL bool

	// TrackFenceAcrossLines counts opening code fences over the whole
	// text instead of the tail line only. With it off, a fence opened on
	// an earlier line is forgotten once a newline arrives and the block's
	// streaming body is considered renderable line by line.
	TrackFenceAcrossLines bool
}

// DefaultOptions matches the behavior streaming consumers expect: strict
// link closing, lenient per-line fence tracking.
func DefaultOptions() Options {
	return Options{RequireLinkURL: true}
}

// Complete reports whether text ends in a renderable state using
// DefaultOptions. It is pure and total: any string, including the empty
// string and arbitrary unicode, yields a verdict without error.
func Complete(text string) bool {
	return CompleteWith(text, DefaultOptions())
}

// CompleteWith is Complete with explicit policy options.
//
// Only the substring after the final newline is inspected; earlier lines
// were each judged while they were the tail and are considered settled.
// The one exception is fence state when TrackFenceAcrossLines is set.
func CompleteWith(text string, opts Options) bool {
	if text == "" {
		return true
	}

	tail := text
	inFence := false
	if i := strings.LastIndexByte(text, '\n'); i >= 0 {
		tail = text[i+1:]
		if opts.TrackFenceAcrossLines {
			inFence = openFenceBefore(text[:i])
		}
	}

	st := scanTail(tail, inFence, opts)
	if st.bold || st.italic || st.code || st.link || st.image || st.inFence || st.inURL {
		return false
	}
	return !incompleteTail(tail)
}

// scanState holds the inline spans still open at the end of the tail line.
type scanState struct {
	bold   bool
	italic bool
	code   bool
	link   bool
	image  bool

	inFence bool // inside a ``` fence
	inURL   bool // between "](" and its ")"
}

// scanTail walks the tail line byte by byte. All marker characters are
// ASCII, so multi-byte runes pass through the default case untouched.
//
// Marker precedence per position: a URL swallows everything up to ")";
// a triple backtick is a fence before it is three inline-code toggles;
// fence and code-span interiors keep every non-backtick marker literal;
// "**" wins over "*".
func scanTail(line string, inFence bool, opts Options) scanState {
	st := scanState{inFence: inFence}

	for i := 0; i < len(line); {
		c := line[i]

		if st.inURL {
			if c == ')' {
				st.inURL = false
			}
			i++
			continue
		}

		if c == '`' {
			if i+2 < len(line) && line[i+1] == '`' && line[i+2] == '`' {
				st.inFence = !st.inFence
				i += 3
				continue
			}
			if !st.inFence {
				st.code = !st.code
			}
			i++
			continue
		}

		if st.code || st.inFence {
			i++
			continue
		}

		switch c {
		case '*':
			if i+1 < len(line) && line[i+1] == '*' && (i == 0 || line[i-1] != '*') {
				st.bold = !st.bold
				i += 2
				continue
			}
			prevStar := i > 0 && line[i-1] == '*'
			nextStar := i+1 < len(line) && line[i+1] == '*'
			if !prevStar && !nextStar {
				st.italic = !st.italic
			}
			i++
		case '[':
			if i > 0 && line[i-1] == '!' {
				st.image = !st.image
			} else {
				st.link = !st.link
			}
			i++
		case ']':
			switch {
			case st.image:
				st.image = false
				i++
			case st.link:
				if i+1 < len(line) && line[i+1] == '(' {
					st.link = false
					st.inURL = true
					i += 2
					continue
				}
				if !opts.RequireLinkURL {
					st.link = false
				}
				i++
			default:
				i++
			}
		default:
			i++
		}
	}

	return st
}

// incompleteTail reports block-level markers that have no content yet: a
// renderer given the bare marker would restyle the whole line once text
// arrives. Checked against the raw tail line, independent of span state.
func incompleteTail(line string) bool {
	if n := trailingBacktickRun(line); n == 1 || n == 2 {
		// could still grow into an inline close or an opening fence
		return true
	}

	body := strings.TrimRight(line, " \t")
	rest := strings.TrimLeft(body, " \t")
	if rest == "" {
		return false
	}

	if isBareBlockquote(rest) {
		return true
	}

	// unordered list marker alone
	if len(rest) == 1 && (rest[0] == '-' || rest[0] == '*' || rest[0] == '+') {
		return true
	}

	if isBareOrderedMarker(rest) {
		return true
	}

	if isBareHeading(rest) {
		return true
	}

	return false
}

// isBareBlockquote matches lines made only of ">" markers and spaces.
func isBareBlockquote(s string) bool {
	seen := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '>':
			seen = true
		case ' ', '\t':
		default:
			return false
		}
	}
	return seen
}

// isBareOrderedMarker matches a list number with no item text: digits
// optionally followed by a period. "1", "12." — but not "1. x" or "v2".
func isBareOrderedMarker(s string) bool {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return false
	}
	if i < len(s) && s[i] == '.' {
		i++
	}
	return i == len(s)
}

// isBareHeading matches 1-6 leading hashes with no heading text. Seven or
// more hashes are not a heading and render as literal text.
func isBareHeading(s string) bool {
	n := 0
	for n < len(s) && s[n] == '#' {
		n++
	}
	return n >= 1 && n <= 6 && n == len(s)
}

func trailingBacktickRun(line string) int {
	n := 0
	for i := len(line) - 1; i >= 0 && line[i] == '`'; i-- {
		n++
	}
	return n
}

// openFenceBefore reports whether the lines preceding the tail leave a
// code fence open: an odd number of lines starting with ``` after
// indentation. Used only when TrackFenceAcrossLines is set.
func openFenceBefore(text string) bool {
	open := false
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimLeft(line, " \t"), "```") {
			open = !open
		}
	}
	return open
}
