// Package feedback runs the human review loop over a candidate set.
package feedback

import (
	"strconv"
	"strings"

	"github.com/jonathan/repocompare/internal/types"
)

// aliases maps accepted spellings to directives. Longer spellings are matched first.
var aliases = []struct {
	word      string
	directive types.Directive
}{
	{"change_focus", types.DirectiveChangeFocus},
	{"change-focus", types.DirectiveChangeFocus},
	{"change focus", types.DirectiveChangeFocus},
	{"approve", types.DirectiveApprove},
	{"filter", types.DirectiveFilter},
	{"refine", types.DirectiveRefine},
	{"focus", types.DirectiveChangeFocus},
	{"skip", types.DirectiveSkip},
}

// Response is a parsed human reply.
type Response struct {
	Directive types.Directive
	Payload   types.FeedbackPayload
}

// ParseDirective maps free text to a directive. Unrecognized input is a skip.
func ParseDirective(text string) types.Directive {
	d, _ := split(firstLine(text))
	return d
}

// ParseResponse reads "directive[: payload]". Lines after the first extend the payload.
//
// Payload grammar:
//
//	refine        feedback items separated by ";" or newlines
//	filter        priority>=N  category=a,b  complexity<=N
//	change_focus  comma-separated focus areas
func ParseResponse(text string) Response {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	head := firstLine(text)
	rest := strings.TrimSpace(strings.TrimPrefix(text, head))

	directive, payload := split(head)
	if rest != "" {
		if payload != "" {
			payload += "\n"
		}
		payload += rest
	}

	resp := Response{Directive: directive, Payload: types.FeedbackPayload{Raw: payload}}
	switch directive {
	case types.DirectiveRefine:
		resp.Payload.FeedbackItems = splitItems(payload, ";\n")
	case types.DirectiveFilter:
		resp.Payload.Filter = ParseFilter(payload)
	case types.DirectiveChangeFocus:
		resp.Payload.FocusAreas = splitItems(payload, ",\n")
	}
	return resp
}

// ParseFilter reads filter tokens separated by whitespace or ";". Unknown tokens are ignored.
func ParseFilter(payload string) types.FilterCriteria {
	var fc types.FilterCriteria
	tokens := strings.FieldsFunc(payload, func(r rune) bool {
		return r == ';' || r == ' ' || r == '\t' || r == '\n'
	})
	for _, tok := range tokens {
		tok = strings.ToLower(tok)
		switch {
		case strings.HasPrefix(tok, "priority>="):
			fc.MinPriority = atoi(strings.TrimPrefix(tok, "priority>="))
		case strings.HasPrefix(tok, "complexity<="):
			fc.MaxComplexity = atoi(strings.TrimPrefix(tok, "complexity<="))
		case strings.HasPrefix(tok, "category="):
			fc.Categories = append(fc.Categories, splitItems(strings.TrimPrefix(tok, "category="), ",")...)
		}
	}
	return fc
}

func split(line string) (types.Directive, string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return types.DirectiveSkip, ""
	}
	for _, a := range aliases {
		if len(line) < len(a.word) || !strings.EqualFold(line[:len(a.word)], a.word) {
			continue
		}
		rest := line[len(a.word):]
		if rest == "" {
			return a.directive, ""
		}
		if rest[0] == ':' || rest[0] == ' ' || rest[0] == '\t' {
			return a.directive, strings.TrimSpace(strings.TrimPrefix(rest, ":"))
		}
	}
	return types.DirectiveSkip, ""
}

func firstLine(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		return strings.TrimSpace(text[:i])
	}
	return text
}

func splitItems(s, seps string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return strings.ContainsRune(seps, r) }) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
