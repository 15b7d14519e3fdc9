package certerrors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

type CertErrorsSuite struct {
	suite.Suite
}

func TestCertErrorsSuite(t *testing.T) {
	suite.Run(t, new(CertErrorsSuite))
}

func (s *CertErrorsSuite) TestErrorString() {
	s.Run("message and cause", func() {
		err := &Error{Code: CodeOutputTooSmall, Message: "artifact too small", Err: errors.New("12 bytes")}
		s.Equal("artifact too small: 12 bytes", err.Error())
	})
	s.Run("falls back to code", func() {
		err := &Error{Code: CodeCanceled}
		s.Equal("canceled", err.Error())
	})
}

func (s *CertErrorsSuite) TestIsByCode() {
	err := New(CodeCompositionMalformed, "missing root")
	s.True(errors.Is(err, ErrCompositionMalformed))
	s.False(errors.Is(err, ErrRasterizationFailed))

	wrapped := fmt.Errorf("generate: %w", err)
	s.True(errors.Is(wrapped, ErrCompositionMalformed))
}

func (s *CertErrorsSuite) TestWrap() {
	s.Run("nil stays nil", func() {
		s.Nil(Wrap(nil, CodePersistenceFailed, "save"))
	})
	s.Run("preserves existing code", func() {
		inner := New(CodeCanceled, "canceled during render")
		err := Wrap(inner, CodeRasterizationFailed, "render")
		s.Equal(CodeCanceled, CodeOf(err))
		s.True(errors.Is(err, inner))
	})
	s.Run("codes plain errors", func() {
		err := Wrap(context.DeadlineExceeded, CodePersistenceFailed, "save")
		s.True(HasCode(err, CodePersistenceFailed))
		s.True(errors.Is(err, context.DeadlineExceeded))
	})
}

func (s *CertErrorsSuite) TestFatal() {
	s.False(CodeAssetDegraded.Fatal())
	s.False(Code("").Fatal())
	for _, c := range []Code{CodeCompositionMalformed, CodeRasterizationFailed, CodeEncodingFailed, CodeOutputTooSmall, CodePersistenceFailed, CodeCanceled} {
		s.True(c.Fatal(), string(c))
	}
}
