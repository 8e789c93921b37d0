package prompt

import (
	"encoding/base64"
	"testing"

	"github.com/rishi-narain/ad-tester/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var shopper = models.Persona{
	ID:           "budget-conscious-shopper",
	Title:        "Budget-Conscious Shopper",
	SystemPrompt: "Persona: Budget-Conscious Shopper\nDescription: Price-sensitive consumer",
}

func TestBuild_Text(t *testing.T) {
	p := Build(shopper, "Save 50% today only!", models.ContentText, nil, Options{})

	assert.Equal(t, SystemInstruction, p.System)
	assert.Nil(t, p.Image)
	assert.Contains(t, p.Text, "Persona: Budget-Conscious Shopper")
	assert.Contains(t, p.Text, "Ad Content:\nSave 50% today only!")
	assert.Contains(t, p.Text, `"resonanceScore"`)
	assert.Contains(t, p.Text, `"suggestedFixes"`)
	assert.NotContains(t, p.Text, `"quote"`)
}

func TestBuild_ImageUsesPlaceholder(t *testing.T) {
	img := &Image{MIMEType: "image/png", Data: []byte{1, 2, 3}, URI: "data:image/png;base64,AQID"}
	p := Build(shopper, img.URI, models.ContentImage, img, Options{IncludeQuote: true})

	require.NotNil(t, p.Image)
	assert.Equal(t, "image/png", p.Image.MIMEType)
	assert.Contains(t, p.Text, "Ad Content:\n"+ImagePlaceholder)
	assert.NotContains(t, p.Text, "AQID")
	assert.Contains(t, p.Text, `"quote"`)
}

func TestBuild_Pure(t *testing.T) {
	a := Build(shopper, "ad", models.ContentText, nil, Options{})
	b := Build(shopper, "ad", models.ContentText, nil, Options{})
	assert.Equal(t, a, b)
}

func TestParseDataURI(t *testing.T) {
	raw := []byte("\x89PNG fake")
	uri := "data:image/PNG;base64," + base64.StdEncoding.EncodeToString(raw)

	img, err := ParseDataURI(uri)
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MIMEType)
	assert.Equal(t, raw, img.Data)
	assert.Equal(t, "png", img.Extension())

	jpeg, err := ParseDataURI("data:image/jpeg;base64,AQID")
	require.NoError(t, err)
	assert.Equal(t, "jpg", jpeg.Extension())
}

func TestParseDataURI_Invalid(t *testing.T) {
	cases := map[string]string{
		"no scheme":     "image/png;base64,AQID",
		"no comma":      "data:image/png;base64",
		"not base64":    "data:image/png,AQID",
		"not an image":  "data:text/plain;base64,AQID",
		"bad payload":   "data:image/png;base64,***",
		"empty payload": "data:image/png;base64,",
	}
	for name, uri := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseDataURI(uri)
			assert.ErrorIs(t, err, ErrInvalidDataURI)
		})
	}
}

func TestEncodeDataURI(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	uri, err := EncodeDataURI(png)
	require.NoError(t, err)

	img, err := ParseDataURI(uri)
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MIMEType)
	assert.Equal(t, png, img.Data)

	_, err = EncodeDataURI([]byte("plain text"))
	assert.ErrorIs(t, err, ErrInvalidDataURI)
}
