package profile

import (
	"encoding/base64"
	"strings"
)

// MaxImageBytes caps each decoded image so a profile with both images stays
// under the 1 MiB document limit.
const MaxImageBytes = 350 << 10

var imageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

// normalizeImage accepts a base64 image data URL, or "" to clear the image.
func normalizeImage(v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", nil
	}

	header, payload, ok := strings.Cut(v, ",")
	if !ok {
		return "", ErrInvalidImage
	}
	mime, ok := strings.CutPrefix(header, "data:")
	if !ok {
		return "", ErrInvalidImage
	}
	mime, ok = strings.CutSuffix(mime, ";base64")
	if !ok || !imageTypes[strings.ToLower(mime)] {
		return "", ErrInvalidImage
	}

	if base64.StdEncoding.DecodedLen(len(payload)) > MaxImageBytes+2 {
		return "", ErrImageTooLarge
	}
	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil || len(decoded) == 0 {
		return "", ErrInvalidImage
	}
	if len(decoded) > MaxImageBytes {
		return "", ErrImageTooLarge
	}
	return v, nil
}
