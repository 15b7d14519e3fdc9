package validate

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MNasiifu/automobile-association-sub000/certerrors"
	"github.com/MNasiifu/automobile-association-sub000/permit"
)

func pdfOfSize(n int) []byte {
	body := bytes.Repeat([]byte{'x'}, max(0, n-len("%PDF-1.7\n")-len("%%EOF\n")))
	return append(append([]byte("%PDF-1.7\n"), body...), []byte("%%EOF\n")...)
}

func TestValidate_OutputPlausibility(t *testing.T) {
	v := Validator{}
	for _, tc := range []struct {
		size    int
		wantErr bool
	}{
		{size: 500, wantErr: true},
		{size: 1023, wantErr: true},
		{size: 1024, wantErr: false},
		{size: 50 * 1024, wantErr: false},
	} {
		err := v.Validate(permit.NewArtifact(pdfOfSize(tc.size), "a.pdf", 1))
		if !tc.wantErr {
			assert.NoError(t, err, "size %d", tc.size)
			continue
		}
		require.Error(t, err, "size %d", tc.size)
		assert.ErrorIs(t, err, certerrors.ErrOutputTooSmall)

		var se *SizeError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, tc.size, se.Actual)
		assert.Equal(t, DefaultMinBytes, se.Minimum)
	}
}

func TestValidate_EmptyArtifact(t *testing.T) {
	err := New(0).Validate(permit.ExportArtifact{})
	assert.ErrorIs(t, err, certerrors.ErrOutputTooSmall)
	assert.Contains(t, err.Error(), "0 bytes, minimum 1024")
}

func TestValidate_CustomFloor(t *testing.T) {
	v := New(64)
	assert.NoError(t, v.Validate(permit.ExportArtifact{Bytes: pdfOfSize(64)}))
	assert.ErrorIs(t, v.Validate(permit.ExportArtifact{Bytes: pdfOfSize(63)}), certerrors.ErrOutputTooSmall)
}

func TestValidate_MalformedContainer(t *testing.T) {
	noHeader := bytes.Repeat([]byte{'x'}, 2048)
	assert.ErrorIs(t, Validator{}.Validate(permit.ExportArtifact{Bytes: noHeader}), certerrors.ErrEncodingFailed)

	noEOF := append([]byte("%PDF-1.7\n"), bytes.Repeat([]byte{'x'}, 2048)...)
	err := Validator{}.Validate(permit.ExportArtifact{Bytes: noEOF})
	assert.ErrorIs(t, err, certerrors.ErrEncodingFailed)
	assert.False(t, errors.Is(err, certerrors.ErrOutputTooSmall))
}
