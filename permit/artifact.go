package permit

import (
	"encoding/hex"
	"strings"
	"time"
	"unicode"

	"golang.org/x/crypto/blake2b"
)

// AssetOrigin records where a resolved asset came from.
type AssetOrigin string

const (
	OriginFetched             AssetOrigin = "fetched"
	OriginFallbackSynthesized AssetOrigin = "fallback_synthesized"
)

// ResolvedAsset is an embeddable image. DataURI is always self-contained.
type ResolvedAsset struct {
	DataURI string
	Origin  AssetOrigin
}

// ExportArtifact is the encoded certificate prior to persistence.
type ExportArtifact struct {
	Bytes             []byte
	SuggestedFilename string
	Digest            string
	Pages             int
}

// NewArtifact wraps encoded bytes and computes the digest.
func NewArtifact(data []byte, filename string, pages int) ExportArtifact {
	return ExportArtifact{
		Bytes:             data,
		SuggestedFilename: filename,
		Digest:            Digest(data),
		Pages:             pages,
	}
}

// Digest returns the hex BLAKE2b-256 sum of data.
func Digest(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

const filenamePrefix = "IDP_Verification_"

// SuggestedFilename builds IDP_Verification_<id>_<YYYY-MM-DD>.pdf.
func SuggestedFilename(id string, now time.Time) string {
	return filenamePrefix + sanitizeID(id) + "_" + now.Format("2006-01-02") + ".pdf"
}

func sanitizeID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '"' || r == ';':
			return '_'
		case unicode.IsSpace(r) || unicode.IsControl(r):
			return '_'
		}
		return r
	}, id)
}
