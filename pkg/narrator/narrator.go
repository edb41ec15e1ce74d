// Package narrator turns a planner-approved intent into a single rendered
// comment string: an LLM call shaped by a fixed system prompt per intent
// type, validated and sanitized post-hoc, with a deterministic template
// fallback whenever the LLM collaborator is unavailable. Grounded on
// github.com/herohde/morlock's pkg/engine/console, which formats a fixed
// vocabulary of short human-readable lines from engine state; generalized
// here from canned formatting strings to LLM-generated prose with a
// sanitizing validator in front of it.
package narrator

import (
	"context"
	"regexp"
	"strings"

	"github.com/chessannotate/core/pkg/collab"
	"github.com/chessannotate/core/pkg/intent"
	"github.com/chessannotate/core/pkg/llmguard"
	"github.com/seekerror/logw"
)

// Style names the two commentary length classes.
type Style string

const (
	StyleDetailed Style = "detailed"
	StyleStandard Style = "standard"
)

const (
	hardCapChars    = 150
	standardSoftCap = 100
)

func capFor(style Style) int {
	if style == StyleDetailed {
		return hardCapChars
	}
	return standardSoftCap
}

// AgentCard bundles the audience-facing knobs the orchestrator threads down
// from CLI flags.
type AgentCard struct {
	Audience         string
	Style            Style
	TargetRating     int
	AllowNumericEval bool
}

// Input bundles everything Generate needs for one comment.
type Input struct {
	Intent           intent.CommentIntent
	Facts            intent.IntentInput
	Card             AgentCard
	PreviousComments []string
	LegalMoves       []string // legal SAN moves in the position being commented on
}

// Deps are the narrator's external collaborators.
type Deps struct {
	LLM     collab.LLMClient
	Breaker *llmguard.Breaker
}

// Generate produces one comment string for in.Intent. It never returns an
// error for a narration failure -- LLM failures fall back to a template,
// and a validation failure that strips a response down to nothing yields
// an empty string (silence is preferred over filler).
func Generate(ctx context.Context, d Deps, in Input) string {
	if d.Breaker == nil || !d.Breaker.Allow() {
		return template(in)
	}

	resp, err := d.LLM.Chat(ctx, buildRequest(in))
	if err != nil {
		logw.Debugf(ctx, "narrator: llm call failed, falling back to template: %v", err)
		d.Breaker.RecordFailure()
		return template(in)
	}
	d.Breaker.RecordSuccess()

	return validate(resp.Content, in)
}

func buildRequest(in Input) collab.ChatRequest {
	sys := systemPromptFor(in.Intent.Type)
	user := userPromptFor(in)
	return collab.ChatRequest{
		Messages: []collab.ChatMessage{
			{Role: "system", Content: sys},
			{Role: "user", Content: user},
		},
		Temperature: 0.7,
	}
}

func systemPromptFor(t intent.Type) string {
	return "You are a chess annotator. Write exactly one short comment explaining " +
		string(t) + ". Do not start with the move itself. Do not state numeric " +
		"evaluations. Do not include preambles like 'Summary:' or 'Note:'. " +
		"Reference only moves that are actually legal in the position."
}

func userPromptFor(in Input) string {
	var b strings.Builder
	b.WriteString("Best move: ")
	b.WriteString(in.Facts.BestMoveSAN)
	if len(in.PreviousComments) > 0 {
		b.WriteString("\nPrevious comments in this line: ")
		b.WriteString(strings.Join(in.PreviousComments, " | "))
	}
	return b.String()
}

// validate sanitizes an LLM response: strips meta preambles, strips
// eval/centipawn tokens (unless the agent card allows them), rewrites any
// move mention that is not in LegalMoves to "the suggested move", removes
// a leading echo of the best move, and enforces the card's length cap.
func validate(content string, in Input) string {
	s := strings.TrimSpace(content)
	s = stripMetaPreamble(s)
	if !in.Card.AllowNumericEval {
		s = stripEvalTokens(s)
	}
	s = stripLeadingMoveEcho(s, in.Facts.BestMoveSAN)
	s = rewriteIllegalMoveMentions(s, in.LegalMoves)
	s = strings.TrimSpace(s)
	s = truncate(s, capFor(in.Card.Style))
	return s
}

var metaPreambles = []string{
	"summary:", "as noted,", "as noted:", "note:", "in summary,", "in summary:",
	"observation:", "analysis:",
}

func stripMetaPreamble(s string) string {
	lower := strings.ToLower(s)
	for _, p := range metaPreambles {
		if strings.HasPrefix(lower, p) {
			return strings.TrimSpace(s[len(p):])
		}
	}
	return s
}

var evalTokenPattern = regexp.MustCompile(`(?i)[+\-]?\d+(\.\d+)?\s*(cp|centipawns?)\b|\(?[+\-]\d+\.\d+\)?|#-?\d+\b`)

func stripEvalTokens(s string) string {
	return collapseSpaces(evalTokenPattern.ReplaceAllString(s, ""))
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func stripLeadingMoveEcho(s, bestMove string) string {
	if bestMove == "" {
		return s
	}
	trimmed := strings.TrimLeft(s, " ")
	if !strings.HasPrefix(trimmed, bestMove) {
		return s
	}
	rest := trimmed[len(bestMove):]
	rest = strings.TrimLeft(rest, " :,-")
	if rest == "" {
		return s
	}
	return capitalizeFirst(rest)
}

func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

var sanLikePattern = regexp.MustCompile(`^(O-O-O|O-O|[KQRBN]?[a-h]?[1-8]?x?[a-h][1-8](=[QRBN])?)[+#]?$`)

func rewriteIllegalMoveMentions(s string, legal []string) string {
	if len(legal) == 0 {
		return s
	}
	legalSet := make(map[string]bool, len(legal))
	for _, m := range legal {
		legalSet[m] = true
	}

	words := strings.Fields(s)
	for i, w := range words {
		clean := strings.Trim(w, ".,;:!?")
		if clean == "" || !sanLikePattern.MatchString(clean) {
			continue
		}
		if legalSet[clean] {
			continue
		}
		words[i] = "the suggested move" + w[len(clean):]
	}
	return strings.Join(words, " ")
}

func truncate(s string, cap int) string {
	if len(s) <= cap {
		return s
	}
	cut := s[:cap]
	if idx := strings.LastIndexByte(cut, ' '); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimRight(cut, " ,;:")
}

// template returns a terse, deterministic comment for in.Intent.Type, used
// whenever the LLM path is unavailable.
func template(in Input) string {
	switch in.Intent.Type {
	case intent.BlunderExplanation:
		return "This move is a serious mistake."
	case intent.ThemeEmergence:
		return "A new theme appears on the board."
	case intent.ThemeResolution:
		return "The earlier theme is now resolved."
	case intent.CriticalMoment:
		return "This is a critical moment in the game."
	case intent.WhatWasMissed:
		return "A stronger alternative was available."
	case intent.HumanMove:
		return "A natural human choice."
	case intent.TacticalShot:
		return "A tactical blow changes the position."
	case intent.StrategicPlan:
		return "This move follows a clear long-term plan."
	case intent.EndgameTechnique:
		return "Correct technique in the endgame."
	case intent.WhyThisMove:
		return "A natural continuation."
	default:
		return ""
	}
}
