package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rishi-narain/ad-tester/internal/models"

	"github.com/kaptinlin/jsonrepair"
)

const (
	MinScore = 0
	MaxScore = 100
)

var (
	// ErrParse means no JSON object could be recovered from the answer.
	ErrParse = errors.New("failed to parse model response")
	// ErrShape means the JSON was readable but did not match the result schema.
	ErrShape = errors.New("model response has invalid shape")
)

// ShapeError names the first field that failed validation.
type ShapeError struct {
	Field  string
	Reason string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: field %q %s", ErrShape, e.Field, e.Reason)
}

func (e *ShapeError) Is(target error) bool { return target == ErrShape }

// Options selects the expected response schema.
type Options struct {
	RequireQuote bool
}

// Recovery step names reported in Trace.
const (
	StepDirect = "direct"
	StepFence  = "fence"
	StepBraces = "braces"
	StepRepair = "repair"
)

// Trace describes how a result was obtained.
type Trace struct {
	Step     string
	RawScore float64
	Clamped  bool
}

// fencePattern only matches fences labeled json; unlabeled fences are
// left to the brace-span step.
var fencePattern = regexp.MustCompile("(?is)```json\\b\\s*(.*?)```")

// Normalize turns a raw model answer into a validated result. It is pure:
// the same input always yields the same output.
func Normalize(raw string, opts Options) (models.EvaluationResult, error) {
	res, _, err := Inspect(raw, opts)
	return res, err
}

// Inspect is Normalize plus a Trace of the recovery step and score
// adjustment, for logging and metrics.
func Inspect(raw string, opts Options) (models.EvaluationResult, Trace, error) {
	obj, step, err := recoverObject(raw)
	if err != nil {
		return models.EvaluationResult{}, Trace{}, err
	}

	res, score, err := validate(obj, opts)
	if err != nil {
		return models.EvaluationResult{}, Trace{Step: step}, err
	}

	res.ResonanceScore = ClampScore(score)
	return res, Trace{
		Step:     step,
		RawScore: score,
		Clamped:  math.Round(score) != float64(res.ResonanceScore),
	}, nil
}

// ClampScore rounds half away from zero, then clamps into [0,100].
func ClampScore(score float64) int {
	r := math.Round(score)
	switch {
	case r < MinScore:
		return MinScore
	case r > MaxScore:
		return MaxScore
	}
	return int(r)
}

func recoverObject(raw string) (map[string]interface{}, string, error) {
	if obj, ok := parseObject(raw); ok {
		return obj, StepDirect, nil
	}

	fenced := ""
	if m := fencePattern.FindStringSubmatch(raw); m != nil {
		fenced = strings.TrimSpace(m[1])
		if obj, ok := parseObject(fenced); ok {
			return obj, StepFence, nil
		}
	}

	if span, ok := firstObjectSpan(raw); ok {
		if obj, ok := parseObject(span); ok {
			return obj, StepBraces, nil
		}
	}

	candidate := raw
	if fenced != "" {
		candidate = fenced
	} else if span, ok := firstObjectSpan(raw); ok {
		candidate = span
	}
	if repaired, err := jsonrepair.JSONRepair(candidate); err == nil {
		if obj, ok := parseObject(repaired); ok {
			return obj, StepRepair, nil
		}
	}

	return nil, "", fmt.Errorf("%w: %s", ErrParse, Preview(raw, 120))
}

func parseObject(s string) (map[string]interface{}, bool) {
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

// firstObjectSpan returns the first balanced {...} span, skipping braces
// inside string literals. An unterminated object yields its prefix so the
// repair step can close it.
func firstObjectSpan(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return s[start:], true
}

func validate(obj map[string]interface{}, opts Options) (models.EvaluationResult, float64, error) {
	var res models.EvaluationResult

	rawScore, ok := obj["resonanceScore"]
	if !ok {
		return res, 0, &ShapeError{Field: "resonanceScore", Reason: "is missing"}
	}
	score, ok := rawScore.(float64)
	if !ok {
		return res, 0, &ShapeError{Field: "resonanceScore", Reason: "must be a number"}
	}

	var err error
	if res.Strengths, err = stringList(obj, "strengths"); err != nil {
		return res, 0, err
	}
	if res.Weaknesses, err = stringList(obj, "weaknesses"); err != nil {
		return res, 0, err
	}
	if res.SuggestedFixes, err = stringList(obj, "suggestedFixes"); err != nil {
		return res, 0, err
	}

	switch q := obj["quote"].(type) {
	case string:
		res.Quote = strings.TrimSpace(q)
	case nil:
	default:
		return res, 0, &ShapeError{Field: "quote", Reason: "must be a string"}
	}
	if opts.RequireQuote && res.Quote == "" {
		return res, 0, &ShapeError{Field: "quote", Reason: "is missing"}
	}

	return res, score, nil
}

func stringList(obj map[string]interface{}, field string) ([]string, error) {
	v, ok := obj[field]
	if !ok || v == nil {
		return nil, &ShapeError{Field: field, Reason: "is missing"}
	}
	items, ok := v.([]interface{})
	if !ok {
		return nil, &ShapeError{Field: field, Reason: "must be an array of strings"}
	}

	out := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, &ShapeError{Field: field, Reason: fmt.Sprintf("item %d must be a string", i)}
		}
		out = append(out, s)
	}
	return out, nil
}

// Preview shortens s to at most n bytes for logs and error text without
// splitting a UTF-8 sequence.
func Preview(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
