package turn

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/mediguide/assistant/internal/gateway"
)

// DefaultImageMIMEType is assumed when a payload carries no data URL prefix
const DefaultImageMIMEType = "image/jpeg"

// ErrInvalidImage is returned for an attachment that is not valid base64
var ErrInvalidImage = errors.New("invalid image payload")

// DecodeDataURL splits a data URL into its mime type and decoded bytes. A
// bare base64 payload is accepted as a JPEG.
func DecodeDataURL(s string) (gateway.Image, error) {
	mimeType := DefaultImageMIMEType
	payload := s
	if rest, ok := strings.CutPrefix(s, "data:"); ok {
		prefix, body, found := strings.Cut(rest, ";base64,")
		if !found {
			return gateway.Image{}, fmt.Errorf("%w: missing base64 marker", ErrInvalidImage)
		}
		if prefix != "" {
			mimeType = prefix
		}
		payload = body
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return gateway.Image{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if len(data) == 0 {
		return gateway.Image{}, fmt.Errorf("%w: empty", ErrInvalidImage)
	}
	return gateway.Image{Data: data, MIMEType: mimeType}, nil
}
