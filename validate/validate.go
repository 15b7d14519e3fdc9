// Package validate rejects encoded certificates that are too small or not a
// well-formed PDF container before they are saved.
package validate

import (
	"bytes"
	"fmt"

	"github.com/MNasiifu/automobile-association-sub000/certerrors"
	"github.com/MNasiifu/automobile-association-sub000/permit"
)

// DefaultMinBytes is the smallest plausible certificate.
const DefaultMinBytes = 1024

var (
	pdfHeader  = []byte("%PDF-")
	pdfTrailer = []byte("%%EOF")
)

// Validator checks artifact plausibility. The zero value uses DefaultMinBytes.
type Validator struct {
	MinBytes int
}

// New returns a validator with the given floor; non-positive values use the
// default.
func New(minBytes int) Validator {
	return Validator{MinBytes: minBytes}
}

func (v Validator) min() int {
	if v.MinBytes <= 0 {
		return DefaultMinBytes
	}
	return v.MinBytes
}

// Validate returns an OutputTooSmall error when the artifact is under the
// floor, and EncodingFailed when it lacks the PDF header or EOF marker.
func (v Validator) Validate(a permit.ExportArtifact) error {
	size, floor := len(a.Bytes), v.min()
	if size < floor {
		return &SizeError{Actual: size, Minimum: floor}
	}
	if !bytes.HasPrefix(a.Bytes, pdfHeader) {
		return certerrors.New(certerrors.CodeEncodingFailed, "artifact does not start with a PDF header")
	}
	tail := a.Bytes[max(0, size-64):]
	if !bytes.Contains(tail, pdfTrailer) {
		return certerrors.New(certerrors.CodeEncodingFailed, "artifact has no %%EOF marker")
	}
	return nil
}

// SizeError reports an artifact under the size floor. It matches
// certerrors.ErrOutputTooSmall.
type SizeError struct {
	Actual  int
	Minimum int
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("export artifact too small: %d bytes, minimum %d", e.Actual, e.Minimum)
}

func (e *SizeError) Unwrap() error {
	return certerrors.New(certerrors.CodeOutputTooSmall, "output too small")
}
