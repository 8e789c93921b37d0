package prompt

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var ErrInvalidDataURI = errors.New("invalid image data URI")

// Image is a decoded ad image.
type Image struct {
	MIMEType string
	Data     []byte
	// URI is the original data URI, forwarded as-is to providers that
	// accept image URLs.
	URI string
}

// ParseDataURI decodes "data:<mime>;base64,<payload>".
func ParseDataURI(uri string) (*Image, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(uri), "data:")
	if !ok {
		return nil, fmt.Errorf("%w: missing data: scheme", ErrInvalidDataURI)
	}

	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, fmt.Errorf("%w: missing payload separator", ErrInvalidDataURI)
	}

	mimeType, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return nil, fmt.Errorf("%w: only base64 encoding is supported", ErrInvalidDataURI)
	}
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, fmt.Errorf("%w: unsupported media type %q", ErrInvalidDataURI, mimeType)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidDataURI)
	}

	return &Image{MIMEType: mimeType, Data: data, URI: strings.TrimSpace(uri)}, nil
}

// Extension maps the image MIME type to the short file-type name used by
// upload settings (jpeg is reported as jpg).
func (img *Image) Extension() string {
	ext := strings.TrimPrefix(img.MIMEType, "image/")
	if ext == "jpeg" {
		return "jpg"
	}
	return ext
}

// EncodeDataURI sniffs the image type of data and returns it as a base64
// data URI.
func EncodeDataURI(data []byte) (string, error) {
	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		return "", fmt.Errorf("%w: unsupported media type %q", ErrInvalidDataURI, mimeType)
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
