package assets

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // Register decoders
	_ "image/jpeg"
	_ "image/png"
	"net/url"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

const dataScheme = "data:"

var errNotDataURI = errors.New("not a data URI")

// IsDataURI reports whether s is already self-contained embedded data.
func IsDataURI(s string) bool {
	return len(s) > len(dataScheme) && strings.EqualFold(s[:len(dataScheme)], dataScheme)
}

// EncodeDataURI returns a base64 data URI for data.
func EncodeDataURI(mime string, data []byte) string {
	return dataScheme + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURI returns the media type and payload of a data URI. Both
// base64 and percent-encoded payloads are accepted.
func DecodeDataURI(uri string) (string, []byte, error) {
	if !IsDataURI(uri) {
		return "", nil, errNotDataURI
	}
	meta, payload, ok := strings.Cut(uri[len(dataScheme):], ",")
	if !ok {
		return "", nil, fmt.Errorf("data URI has no payload separator")
	}
	isBase64 := false
	mime := meta
	if m, ok := strings.CutSuffix(meta, ";base64"); ok {
		isBase64 = true
		mime = m
	}
	if mime == "" {
		mime = "text/plain;charset=US-ASCII"
	}
	if isBase64 {
		data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
		if err != nil {
			return "", nil, fmt.Errorf("decode base64 payload: %w", err)
		}
		return mime, data, nil
	}
	data, err := url.PathUnescape(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode percent payload: %w", err)
	}
	return mime, []byte(data), nil
}

// SniffImage checks that data decodes as a supported image and returns its
// media type.
func SniffImage(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty image payload")
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("unrecognised image payload: %w", err)
	}
	return "image/" + format, nil
}

// DecodeImage decodes a data URI into an image.
func DecodeImage(uri string) (image.Image, error) {
	_, data, err := DecodeDataURI(uri)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}
