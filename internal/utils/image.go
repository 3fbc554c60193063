package utils

import (
	"encoding/base64"
	"errors"
	"strings"
)

var ErrInvalidBase64Image = errors.New("invalid base64 image")

// DecodeBase64Image accepts either a raw base64 string or a data URL of the
// form "data:image/png;base64,...." and returns the decoded bytes together
// with the content type.
func DecodeBase64Image(payload string) ([]byte, string, error) {
	contentType := "image/png"

	if strings.HasPrefix(payload, "data:") {
		parts := strings.SplitN(payload, ",", 2)
		if len(parts) != 2 {
			return nil, "", ErrInvalidBase64Image
		}
		meta := strings.TrimPrefix(parts[0], "data:")
		if idx := strings.Index(meta, ";"); idx >= 0 {
			contentType = meta[:idx]
		}
		payload = parts[1]
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", ErrInvalidBase64Image
	}
	return data, contentType, nil
}
