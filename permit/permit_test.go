package permit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestClassify(t *testing.T) {
	now := date(2024, time.June, 1)
	base := VerificationRecord{ID: "UG1", Found: true, IssueDate: date(2024, time.January, 15)}

	t.Run("not found wins over dates", func(t *testing.T) {
		got := Classify(VerificationRecord{ID: "UG-INVALID"}, now)
		assert.Equal(t, StateNotFound, got.State)
	})

	t.Run("expired before today", func(t *testing.T) {
		rec := base
		rec.ExpiryDate = date(2024, time.May, 31)
		assert.Equal(t, StateExpired, Classify(rec, now).State)
	})

	t.Run("expiring today is expires soon", func(t *testing.T) {
		rec := base
		rec.ExpiryDate = now
		assert.Equal(t, StateExpiresSoon, Classify(rec, now).State)
	})

	t.Run("thirty day boundary", func(t *testing.T) {
		rec := base
		rec.ExpiryDate = date(2024, time.July, 1)
		assert.Equal(t, StateExpiresSoon, Classify(rec, now).State)
		rec.ExpiryDate = date(2024, time.July, 2)
		assert.Equal(t, StateValid, Classify(rec, now).State)
	})

	t.Run("every state carries message and color", func(t *testing.T) {
		rec := base
		rec.ExpiryDate = date(2025, time.January, 14)
		got := Classify(rec, now)
		assert.True(t, got.State.Valid())
		assert.NotEmpty(t, got.Message)
		assert.Equal(t, "green", got.DisplayColor)
	})
}

func TestSuggestedFilename(t *testing.T) {
	now := time.Date(2024, time.March, 9, 18, 30, 0, 0, time.UTC)
	assert.Equal(t, "IDP_Verification_UG2024SAMPLE123_2024-03-09.pdf", SuggestedFilename("UG2024SAMPLE123", now))
	assert.Equal(t, "IDP_Verification_UG_12_3_2024-03-09.pdf", SuggestedFilename("UG/12 3", now))
	assert.Equal(t, "IDP_Verification_unknown_2024-03-09.pdf", SuggestedFilename("  ", now))
	assert.Equal(t, "IDP_Verification_UG__x_2024-03-09.pdf", SuggestedFilename(`UG";x`, now))
}

func TestClassify_ExpiryDayIsZoneIndependent(t *testing.T) {
	newYork := time.FixedZone("EST", -5*60*60)
	rec := VerificationRecord{
		ID:         "UG2024SAMPLE123",
		Found:      true,
		IssueDate:  time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC),
		ExpiryDate: time.Date(2025, time.January, 14, 0, 0, 0, 0, time.UTC),
	}

	onExpiryDay := time.Date(2025, time.January, 14, 9, 0, 0, 0, newYork)
	assert.Equal(t, StateExpiresSoon, Classify(rec, onExpiryDay).State, "the printed expiry day is still valid")

	dayAfter := time.Date(2025, time.January, 15, 0, 30, 0, 0, newYork)
	assert.Equal(t, StateExpired, Classify(rec, dayAfter).State)

	tokyo := time.FixedZone("JST", 9*60*60)
	lateOnExpiryDay := time.Date(2025, time.January, 14, 23, 30, 0, 0, tokyo)
	assert.Equal(t, StateExpiresSoon, Classify(rec, lateOnExpiryDay).State)
}

func TestFullNameAndPhoto(t *testing.T) {
	blank := "  "
	rec := VerificationRecord{GivenNames: " Jane ", Surname: "Doe", PhotoReference: &blank}
	assert.Equal(t, "Jane Doe", rec.FullName())
	assert.False(t, rec.HasPhoto())
}

func TestNewArtifactDigest(t *testing.T) {
	a := NewArtifact([]byte("pdf"), "x.pdf", 1)
	b := NewArtifact([]byte("pdf"), "y.pdf", 1)
	assert.Len(t, a.Digest, 64)
	assert.Equal(t, a.Digest, b.Digest)
	assert.NotEqual(t, a.Digest, Digest([]byte("other")))
}
