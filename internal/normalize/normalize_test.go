package normalize

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const valid = `{"resonanceScore": 82, "strengths": ["clear price"], "weaknesses": ["small font"], "suggestedFixes": ["bigger CTA"]}`

func TestNormalize_Direct(t *testing.T) {
	res, trace, err := Inspect(valid, Options{})
	require.NoError(t, err)
	assert.Equal(t, StepDirect, trace.Step)
	assert.Equal(t, 82, res.ResonanceScore)
	assert.Equal(t, []string{"clear price"}, res.Strengths)
	assert.Equal(t, []string{"small font"}, res.Weaknesses)
	assert.Equal(t, []string{"bigger CTA"}, res.SuggestedFixes)
}

func TestNormalize_ScoreRoundingAndClamping(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		clamped bool
	}{
		{`-15`, 0, true},
		{`57.8`, 58, false},
		{`142`, 100, true},
		{`100.4`, 100, false},
		{`-0.4`, 0, false},
		{`49.5`, 50, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			raw := `{"resonanceScore": ` + tt.raw + `, "strengths": [], "weaknesses": [], "suggestedFixes": []}`
			res, trace, err := Inspect(raw, Options{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.ResonanceScore)
			assert.Equal(t, tt.clamped, trace.Clamped)
		})
	}
}

func TestNormalize_FencedEqualsUnwrapped(t *testing.T) {
	direct, err := Normalize(valid, Options{})
	require.NoError(t, err)

	fenced, trace, err := Inspect("Here you go:\n```json\n"+valid+"\n```\nThanks!", Options{})
	require.NoError(t, err)
	assert.Equal(t, StepFence, trace.Step)
	assert.Equal(t, direct, fenced)
}

func TestNormalize_BraceSpan(t *testing.T) {
	raw := `Sure! My analysis {"note": "a } inside a string"} is below.` + "\n" + valid
	res, trace, err := Inspect(`Result: `+valid+` hope this helps {not json}`, Options{})
	require.NoError(t, err)
	assert.Equal(t, StepBraces, trace.Step)
	assert.Equal(t, 82, res.ResonanceScore)

	// the first balanced object wins even when it is not the result
	_, err = Normalize(raw, Options{})
	assert.ErrorIs(t, err, ErrShape)
}

func TestNormalize_Repair(t *testing.T) {
	raw := "{'resonanceScore': 70, 'strengths': ['a',], 'weaknesses': ['b'], 'suggestedFixes': ['c']"
	res, trace, err := Inspect(raw, Options{})
	require.NoError(t, err)
	assert.Equal(t, StepRepair, trace.Step)
	assert.Equal(t, 70, res.ResonanceScore)
	assert.Equal(t, []string{"a"}, res.Strengths)
}

func TestNormalize_Idempotent(t *testing.T) {
	first, err := Normalize("```json\n{\"resonanceScore\": 142.6, \"strengths\": [\"x\"], \"weaknesses\": [], \"suggestedFixes\": [\"y\"], \"quote\": \" hi \"}\n```", Options{})
	require.NoError(t, err)

	encoded, err := json.Marshal(first)
	require.NoError(t, err)

	second, err := Normalize(string(encoded), Options{})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 100, second.ResonanceScore)
	assert.Equal(t, "hi", second.Quote)
}

func TestNormalize_ShapeErrors(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		opts  Options
		field string
	}{
		{"missing suggestedFixes", `{"resonanceScore": 50, "strengths": [], "weaknesses": []}`, Options{}, "suggestedFixes"},
		{"missing score", `{"strengths": [], "weaknesses": [], "suggestedFixes": []}`, Options{}, "resonanceScore"},
		{"string score", `{"resonanceScore": "80", "strengths": [], "weaknesses": [], "suggestedFixes": []}`, Options{}, "resonanceScore"},
		{"strengths not array", `{"resonanceScore": 80, "strengths": "good", "weaknesses": [], "suggestedFixes": []}`, Options{}, "strengths"},
		{"non-string item", `{"resonanceScore": 80, "strengths": [], "weaknesses": [1], "suggestedFixes": []}`, Options{}, "weaknesses"},
		{"null list", `{"resonanceScore": 80, "strengths": null, "weaknesses": [], "suggestedFixes": []}`, Options{}, "strengths"},
		{"quote required", valid, Options{RequireQuote: true}, "quote"},
		{"quote mistyped", `{"resonanceScore": 80, "strengths": [], "weaknesses": [], "suggestedFixes": [], "quote": 3}`, Options{}, "quote"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.raw, tt.opts)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrShape)

			var shapeErr *ShapeError
			require.True(t, errors.As(err, &shapeErr))
			assert.Equal(t, tt.field, shapeErr.Field)
		})
	}
}

func TestNormalize_Unparseable(t *testing.T) {
	for _, raw := range []string{"", "I cannot evaluate this ad.", "[1, 2, 3]"} {
		_, err := Normalize(raw, Options{})
		assert.ErrorIs(t, err, ErrParse, raw)
	}
}

func TestFirstObjectSpan(t *testing.T) {
	span, ok := firstObjectSpan(`x {"a": "}", "b": {"c": 1}} y {}`)
	require.True(t, ok)
	assert.Equal(t, `{"a": "}", "b": {"c": 1}}`, span)

	_, ok = firstObjectSpan("no braces")
	assert.False(t, ok)
}

func TestNormalize_OnlyJSONLabeledFenceIsFenceStep(t *testing.T) {
	direct, err := Normalize(valid, Options{})
	require.NoError(t, err)

	upper, trace, err := Inspect("```JSON\n"+valid+"\n```", Options{})
	require.NoError(t, err)
	assert.Equal(t, StepFence, trace.Step)
	assert.Equal(t, direct, upper)

	// an unlabeled or differently labeled fence is found by the brace scan
	for _, raw := range []string{"```\n" + valid + "\n```", "```js\n" + valid + "\n```", "```jsonc\n" + valid + "\n```"} {
		res, trace, err := Inspect(raw, Options{})
		require.NoError(t, err, raw)
		assert.Equal(t, StepBraces, trace.Step, raw)
		assert.Equal(t, direct, res)
	}
}

func TestPreview_KeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "short", Preview("  short \n", 120))

	// 3-byte runes: a cut at byte 10 falls inside the fourth rune
	s := strings.Repeat("€", 10)
	p := Preview(s, 10)
	assert.True(t, utf8.ValidString(p), p)
	assert.Equal(t, strings.Repeat("€", 3)+"...", p)

	exact := strings.Repeat("€", 4)
	assert.Equal(t, exact, Preview(exact+"€", 12)[:12])

	_, err := Normalize(strings.Repeat("é", 200), Options{})
	require.ErrorIs(t, err, ErrParse)
	assert.True(t, utf8.ValidString(err.Error()))
}
