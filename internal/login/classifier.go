package login

import (
	"regexp"
	"strings"
)

// ansiPattern matches CSI sequences (cursor movement, colors), OSC sequences
// (terminated by BEL or ST) and charset selection escapes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;?]*[a-zA-Z]|\x1b\][^\x07\x1b]*(\x07|\x1b\\)|\x1b[()][0-9A-Za-z]`)

// urlPattern matches http/https URLs up to the first character that cannot be
// part of one (whitespace, control bytes, quoting or bracketing characters).
var urlPattern = regexp.MustCompile("https?://[^\\s\x00-\x1f<>\"'`]+")

// promptWindow bounds how far back prompt phrases are searched. Prompts only
// matter when they are the most recent thing the CLI printed; matching deep
// scrollback produces false positives.
const promptWindow = 1000

// Event is the outcome of classifying accumulated terminal output.
type Event struct {
	Success bool   // a success marker was seen
	Prompt  string // matched prompt fragment, empty if none
	URL     string // longest matching OAuth URL, empty if none
}

// Rules is the ordered phrase tables the classifier evaluates. The lists are
// tuned empirically against the provider CLIs; there is no formal protocol.
type Rules struct {
	// Success phrases, checked anywhere in the output. First hit wins and
	// ends classification for the read.
	Success []string

	// Prompt fragments, matched against the tail of the output. The
	// fragment whose match ends latest wins: that is the most recent thing
	// the CLI asked for.
	Prompts []string

	// Domain fragments an http(s) URL must contain to count as an OAuth URL.
	URLDomains []string
}

// DefaultRules returns the phrase tables covering the supported provider CLIs.
func DefaultRules() Rules {
	return Rules{
		Success: []string{
			"authentication successful!",
			"authentication saved",
			"login successful",
			"saved to",
		},
		Prompts: []string{
			"paste the callback url",
			"enter the verification code",
			"enter choice",
			"enter project id",
			"or all:",
			"press enter to continue",
		},
		URLDomains: []string{
			"accounts.google.com",
			"console.anthropic.com",
			"claude.ai",
			"auth.openai.com",
			"chat.qwen.ai",
			"iflow.cn",
			"oauth",
		},
	}
}

// StripControl removes ANSI escape and OSC sequences. All phrase and URL
// matching runs against stripped text.
func StripControl(s string) string {
	if !strings.ContainsRune(s, '\x1b') {
		return s
	}
	return ansiPattern.ReplaceAllString(s, "")
}

// Classify evaluates the rule tables against the full accumulated cleaned
// output. It is a pure function: feeding the same bytes in any chunking yields
// the same result, because matching always runs over the whole buffer rather
// than the newest chunk.
//
// Priority order: success ends classification immediately; a prompt suppresses
// URL reporting for this read; otherwise the longest qualifying URL is
// returned.
func (r Rules) Classify(clean string) Event {
	lower := strings.ToLower(clean)

	for _, phrase := range r.Success {
		if strings.Contains(lower, phrase) {
			return Event{Success: true}
		}
	}

	if prompt, _ := r.matchPrompt(lower, 0); prompt != "" {
		return Event{Prompt: prompt}
	}

	return Event{URL: r.longestURL(clean)}
}

// matchPrompt searches the recency window of lower-cased text and returns the
// prompt fragment whose match ends latest, so overlapping fragments resolve to
// the one closest to the cursor. minEnd lets the session ignore a prompt it
// has already answered: only text printed after the last input delivery can
// re-trigger needs_input.
func (r Rules) matchPrompt(lower string, minEnd int) (string, int) {
	start := 0
	if len(lower) > promptWindow {
		start = len(lower) - promptWindow
	}
	window := lower[start:]

	var bestPhrase string
	var bestEnd int
	for _, phrase := range r.Prompts {
		idx := strings.LastIndex(window, phrase)
		if idx < 0 {
			continue
		}
		end := start + idx + len(phrase)
		if end > minEnd && end > bestEnd {
			bestPhrase, bestEnd = phrase, end
		}
	}
	return bestPhrase, bestEnd
}

// longestURL scans the entire buffer for http(s) URLs containing one of the
// OAuth domain fragments and returns the longest. Scanning the whole buffer
// (not just the tail) means a URL printed before trailing prompt text is
// never missed, and preferring the longest match heals URLs that were
// truncated by a partial read.
func (r Rules) longestURL(clean string) string {
	var best string
	for _, candidate := range urlPattern.FindAllString(clean, -1) {
		if !r.isOAuthURL(candidate) {
			continue
		}
		candidate = strings.TrimRight(candidate, ").,;")
		if len(candidate) > len(best) {
			best = candidate
		}
	}
	return best
}

func (r Rules) isOAuthURL(url string) bool {
	lower := strings.ToLower(url)
	for _, domain := range r.URLDomains {
		if strings.Contains(lower, domain) {
			return true
		}
	}
	return false
}
