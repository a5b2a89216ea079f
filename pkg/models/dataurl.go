package models

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Images cross process boundaries as data-URL strings:
// data:<mime>;base64,<payload>. Malformed input is a reported error
// condition, never a panic.

func EncodeDataURL(mimeType string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}

func DecodeDataURL(s string) (mimeType string, data []byte, err error) {
	header, payload, found := strings.Cut(s, ",")
	if !found {
		return "", nil, fmt.Errorf("%w: missing comma separator", ErrInvalidEncoding)
	}

	if !strings.HasPrefix(header, "data:") {
		return "", nil, fmt.Errorf("%w: missing data: prefix", ErrInvalidEncoding)
	}
	meta := strings.TrimPrefix(header, "data:")
	mimeType, _, _ = strings.Cut(meta, ";")
	if mimeType == "" || !strings.Contains(mimeType, "/") {
		return "", nil, fmt.Errorf("%w: unparsable mime type %q", ErrInvalidEncoding, mimeType)
	}

	data, decErr := base64.StdEncoding.DecodeString(payload)
	if decErr != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidEncoding, decErr)
	}
	return mimeType, data, nil
}
