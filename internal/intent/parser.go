package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/dvloznov/voice-inventory/internal/logger"
)

// LanguageModel turns a prompt into raw model text, which is expected to
// contain a JSON object, optionally fenced.
type LanguageModel interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Parser interprets transcripts into Commands using a LanguageModel.
type Parser struct {
	model LanguageModel
}

// NewParser creates a Parser backed by the given model.
func NewParser(model LanguageModel) *Parser {
	return &Parser{model: model}
}

// Parse never fails: model errors, empty or non-JSON output all degrade to
// FailedCommand so the dispatcher always has a defined case.
func (p *Parser) Parse(ctx context.Context, transcript string) (cmd Command) {
	log := logger.FromContext(ctx)

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Intent parser panicked")
			cmd = FailedCommand(fmt.Sprint(r))
		}
	}()

	cmd, err := p.parse(ctx, transcript)
	if err != nil {
		log.Warn().Err(err).Str("transcript", transcript).Msg("Failed to interpret command")
		return FailedCommand(err.Error())
	}

	log.Debug().
		Str("intent", string(cmd.Intent)).
		Float64("confidence", cmd.Confidence).
		Msg("Command interpreted")

	return cmd
}

func (p *Parser) parse(ctx context.Context, transcript string) (Command, error) {
	if p.model == nil {
		return Command{}, errors.New("no language model configured")
	}

	rawText, err := p.model.Generate(ctx, buildCommandPrompt(transcript))
	if err != nil {
		return Command{}, err
	}
	if strings.TrimSpace(rawText) == "" {
		return Command{}, errors.New("empty response from model")
	}

	return decodeCommand(rawText)
}

// decodeCommand validates raw model output into a Command.
func decodeCommand(rawText string) (Command, error) {
	clean := cleanModelJSON(rawText)

	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(clean), &obj); err != nil {
		return Command{}, fmt.Errorf("invalid JSON from model: %w", err)
	}
	if obj == nil {
		return Command{}, errors.New("model returned null")
	}

	cmd := Command{Intent: Unknown}

	if tag, ok := obj["intent"].(string); ok {
		cmd.Intent = NormalizeIntent(tag)
	}

	if v, ok := obj["confidence"]; ok && v != nil {
		if f, ok := toFloat(v); ok {
			cmd.Confidence = clampConfidence(f)
		}
	}

	if ents, ok := obj["entities"].(map[string]interface{}); ok {
		cmd.Entities = entitiesFromMap(ents)
	}

	if action, ok := obj["action"].(string); ok {
		cmd.Action = strings.TrimSpace(action)
	}

	return cmd, nil
}

func clampConfidence(f float64) float64 {
	return math.Max(0, math.Min(1, f))
}

// cleanModelJSON strips Markdown fences and surrounding chatter, keeping
// the outermost JSON object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			s = strings.TrimPrefix(strings.TrimPrefix(s, "```json"), "```")
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}
