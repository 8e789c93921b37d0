package prompt

import (
	"fmt"
	"strings"

	"github.com/rishi-narain/ad-tester/internal/models"
)

// SystemInstruction is sent as the system message on every evaluation.
const SystemInstruction = "You are an expert marketing analyst. Always respond with valid JSON only, no additional text."

// ImagePlaceholder stands in for the ad content in the text part when
// the ad is an image.
const ImagePlaceholder = "[Image provided]"

// Options selects the prompt variant.
type Options struct {
	// IncludeQuote asks the model for a first-person persona reaction.
	IncludeQuote bool
}

// Payload is one evaluation request as handed to a model provider.
type Payload struct {
	System string
	Text   string
	Image  *Image
}

// Build combines persona conditioning with the ad content. It does not
// validate; callers are expected to have checked content and persona.
// For image content, content must already be decoded into img.
func Build(persona models.Persona, content string, contentType models.ContentType, img *Image, opts Options) Payload {
	adContent := content
	if contentType == models.ContentImage {
		adContent = ImagePlaceholder
	}

	payload := Payload{
		System: SystemInstruction,
		Text:   evaluationText(persona.SystemPrompt, adContent, opts),
	}
	if contentType == models.ContentImage {
		payload.Image = img
	}
	return payload
}

func evaluationText(personaContext, adContent string, opts Options) string {
	var b strings.Builder
	b.WriteString("You are an expert marketing analyst specializing in ad resonance evaluation. ")
	b.WriteString("Your task is to evaluate how well an ad will resonate with a specific target persona.\n\n")
	b.WriteString(strings.TrimSpace(personaContext))
	b.WriteString(`

Evaluate the following ad and provide a detailed analysis based on the persona's characteristics and perspective. Consider:
1. How well the ad resonates with the persona's key characteristics
2. Whether it triggers the right emotional responses
3. Alignment with their behavior and motivations
4. Overall resonance and likelihood of engagement

Ad Content:
`)
	b.WriteString(adContent)
	b.WriteString("\n\nProvide your evaluation in the following JSON format:\n")
	b.WriteString(schema(opts))
	b.WriteString("\n\nBe specific and actionable. Focus on what would make this persona respond positively or negatively to this ad.")
	return b.String()
}

func schema(opts Options) string {
	lines := []string{
		`  "resonanceScore": <number between 0-100>`,
		`  "strengths": ["strength 1", "strength 2", "strength 3"]`,
		`  "weaknesses": ["weakness 1", "weakness 2", "weakness 3"]`,
		`  "suggestedFixes": ["fix 1", "fix 2", "fix 3"]`,
	}
	if opts.IncludeQuote {
		lines = append(lines, `  "quote": "<one or two sentences in the persona's own voice reacting to the ad>"`)
	}
	return fmt.Sprintf("{\n%s\n}", strings.Join(lines, ",\n"))
}
