// Package decision extracts and validates the structured decision block from
// the reasoning service's free-form response text.
package decision

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"llm-scanner-bot/internal/types"
)

// Extraction strategies, tried in order. Candidate fragments are collected in
// strategy order and the first one that parses as JSON wins; fragments that
// are not valid JSON fall through to the next candidate.
var (
	markerRe = regexp.MustCompile(`(?s)JSON_SUMMARY\s*[:：]?\s*(\{.*?\})`)
	fencedRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	bareRe   = regexp.MustCompile(`(?s)\{[^{}]*"action"[^{}]*\}`)
)

// rawDecision mirrors the decision block on the wire. Confidence must be a
// JSON integer; fractional values are a schema violation.
type rawDecision struct {
	Action     string  `json:"action"`
	Confidence int     `json:"confidence"`
	Entry      float64 `json:"entry"`
	StopLoss   float64 `json:"stop_loss"`
	Reason     string  `json:"reason"`
}

// Parser turns response text into validated decisions.
type Parser struct {
	validate *validator.Validate
}

func NewParser() *Parser {
	return &Parser{validate: validator.New()}
}

// Parse locates the decision block in text and validates it.
func (p *Parser) Parse(text string) (types.Decision, error) {
	for _, candidate := range extractCandidates(text) {
		var raw rawDecision
		if err := json.Unmarshal([]byte(candidate), &raw); err != nil {
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &typeErr) {
				return types.Decision{}, fmt.Errorf("%w: field %q: %v", types.ErrSchemaViolation, typeErr.Field, err)
			}
			continue
		}
		return p.validateDecision(raw)
	}
	return types.Decision{}, fmt.Errorf("%w: no parseable block in response", types.ErrNoDecisionBlock)
}

func extractCandidates(text string) []string {
	var out []string
	for _, m := range markerRe.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	for _, m := range fencedRe.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	out = append(out, bareRe.FindAllString(text, -1)...)
	return out
}

func (p *Parser) validateDecision(raw rawDecision) (types.Decision, error) {
	d := types.Decision{
		Action:     strings.ToUpper(strings.TrimSpace(raw.Action)),
		Confidence: raw.Confidence,
		Entry:      raw.Entry,
		StopLoss:   raw.StopLoss,
		Reason:     strings.TrimSpace(raw.Reason),
	}

	// WAIT carries no prices; drop whatever the model attached.
	if d.Action == types.ActionWait {
		d.Entry = 0
		d.StopLoss = 0
	}

	if err := p.validate.Struct(&d); err != nil {
		return types.Decision{}, fmt.Errorf("%w: %v", types.ErrSchemaViolation, err)
	}

	if d.Action != types.ActionWait {
		if d.Entry == 0 || d.StopLoss == 0 {
			return types.Decision{}, fmt.Errorf("%w: %s decision missing entry or stop_loss", types.ErrInconsistentDecision, d.Action)
		}
		if d.Action == types.ActionBuy && d.StopLoss >= d.Entry {
			return types.Decision{}, fmt.Errorf("%w: BUY stop_loss %.4f not below entry %.4f", types.ErrInconsistentDecision, d.StopLoss, d.Entry)
		}
		if d.Action == types.ActionSell && d.StopLoss <= d.Entry {
			return types.Decision{}, fmt.Errorf("%w: SELL stop_loss %.4f not above entry %.4f", types.ErrInconsistentDecision, d.StopLoss, d.Entry)
		}
	}

	return d, nil
}
