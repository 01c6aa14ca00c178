// Package transform rewrites competitor mentions in channel posts. All
// functions are pure.
package transform

import (
	"regexp"
	"sort"
	"strings"
)

var (
	mentionPattern = regexp.MustCompile(`(?i)(?:^|[^a-z0-9_@])@([a-z0-9_]{5,32})\b`)
	linkPattern    = regexp.MustCompile(`(?i)\b(t\.me|telegram\.me)/([a-z0-9_]{5,32})\b`)
)

const (
	mentionGroup = 1
	linkGroup    = 2
)

// Result is the outcome of ProcessMessageText
type Result struct {
	DetectedCompetitors []string `json:"detectedCompetitors"`
	ModifiedText        string   `json:"modifiedText"`
	FinalText           string   `json:"finalText"`
}

// NormalizeHandle lower-cases a handle and strips a leading '@'
func NormalizeHandle(h string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(h), "@"))
}

type occurrence struct {
	pos    int
	handle string
}

func occurrences(text string) []occurrence {
	var out []occurrence
	for _, m := range mentionPattern.FindAllStringSubmatchIndex(text, -1) {
		out = append(out, occurrence{pos: m[2*mentionGroup], handle: strings.ToLower(text[m[2*mentionGroup]:m[2*mentionGroup+1]])})
	}
	for _, m := range linkPattern.FindAllStringSubmatchIndex(text, -1) {
		out = append(out, occurrence{pos: m[2*linkGroup], handle: strings.ToLower(text[m[2*linkGroup]:m[2*linkGroup+1]])})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].pos < out[j].pos })
	return out
}

// DetectCompetitorMentions returns the known handles mentioned in text as
// @handle or t.me/handle, lower-cased, deduplicated and in order of first
// appearance
func DetectCompetitorMentions(text string, knownHandles []string) []string {
	if text == "" || len(knownHandles) == 0 {
		return []string{}
	}

	known := make(map[string]struct{}, len(knownHandles))
	for _, h := range knownHandles {
		if n := NormalizeHandle(h); n != "" {
			known[n] = struct{}{}
		}
	}

	seen := make(map[string]struct{})
	detected := []string{}
	for _, occ := range occurrences(text) {
		if _, ok := known[occ.handle]; !ok {
			continue
		}
		if _, dup := seen[occ.handle]; dup {
			continue
		}
		seen[occ.handle] = struct{}{}
		detected = append(detected, occ.handle)
	}
	return detected
}

// ReplaceCompetitorMentions substitutes ownHandle for every detected handle.
// Link occurrences keep their domain and only the handle segment changes.
func ReplaceCompetitorMentions(text string, detected []string, ownHandle string) string {
	own := strings.TrimPrefix(strings.TrimSpace(ownHandle), "@")
	if text == "" || own == "" || len(detected) == 0 {
		return text
	}

	targets := make(map[string]struct{}, len(detected))
	for _, h := range detected {
		targets[NormalizeHandle(h)] = struct{}{}
	}
	replace := func(handle string) (string, bool) {
		if _, ok := targets[strings.ToLower(handle)]; ok {
			return own, true
		}
		return "", false
	}

	text = replaceGroup(text, mentionPattern, mentionGroup, replace)
	return replaceGroup(text, linkPattern, linkGroup, replace)
}

// replaceGroup rewrites the given submatch group of every match of re
func replaceGroup(text string, re *regexp.Regexp, group int, replace func(string) (string, bool)) string {
	matches := re.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, m := range matches {
		start, end := m[2*group], m[2*group+1]
		if start < 0 {
			continue
		}
		repl, ok := replace(text[start:end])
		if !ok {
			continue
		}
		b.WriteString(text[last:start])
		b.WriteString(repl)
		last = end
	}
	b.WriteString(text[last:])
	return b.String()
}

// CallToAction returns the promotional suffix for ownHandle
func CallToAction(ownHandle string) string {
	own := "@" + strings.TrimPrefix(strings.TrimSpace(ownHandle), "@")
	return "\n\n📢 Subscribe for more: " + own + "\n👉 Join us today: " + own
}

// AppendCallToAction appends the call-to-action once. Empty text or handle
// leave text unchanged.
func AppendCallToAction(text, ownHandle string) string {
	if text == "" || strings.TrimPrefix(strings.TrimSpace(ownHandle), "@") == "" {
		return text
	}
	cta := CallToAction(ownHandle)
	if strings.HasSuffix(text, cta) {
		return text
	}
	return text + cta
}

// ProcessMessageText runs detection, replacement and the call-to-action in order
func ProcessMessageText(text string, knownHandles []string, ownHandle string) Result {
	detected := DetectCompetitorMentions(text, knownHandles)
	modified := ReplaceCompetitorMentions(text, detected, ownHandle)
	return Result{
		DetectedCompetitors: detected,
		ModifiedText:        modified,
		FinalText:           AppendCallToAction(modified, ownHandle),
	}
}
