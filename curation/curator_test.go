package curation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func goodVideo(now time.Time) VideoHit {
	return VideoHit{
		VideoID:       "abc123",
		Duration:      15 * time.Minute,
		ViewCount:     80_000,
		LikeCount:     2_000,
		CommentCount:  150,
		PublishedAt:   now.Add(-90 * 24 * time.Hour),
		PrivacyStatus: "public",
		Embeddable:    true,
		UploadStatus:  "processed",
	}
}

func TestPassesFilters(t *testing.T) {
	now := time.Now()

	assert.True(t, PassesFilters(goodVideo(now), now))

	tooShort := goodVideo(now)
	tooShort.Duration = 3 * time.Minute
	assert.False(t, PassesFilters(tooShort, now))

	tooLong := goodVideo(now)
	tooLong.Duration = 45 * time.Minute
	assert.False(t, PassesFilters(tooLong, now))

	fewViews := goodVideo(now)
	fewViews.ViewCount = 5_000
	assert.False(t, PassesFilters(fewViews, now))

	lowLikes := goodVideo(now)
	lowLikes.LikeCount = 100
	assert.False(t, PassesFilters(lowLikes, now))

	fewComments := goodVideo(now)
	fewComments.CommentCount = 3
	assert.False(t, PassesFilters(fewComments, now))

	tooNew := goodVideo(now)
	tooNew.PublishedAt = now.Add(-5 * 24 * time.Hour)
	assert.False(t, PassesFilters(tooNew, now))

	tooOld := goodVideo(now)
	tooOld.PublishedAt = now.Add(-3 * 365 * 24 * time.Hour)
	assert.False(t, PassesFilters(tooOld, now))
}

func TestIsAvailable(t *testing.T) {
	now := time.Now()

	assert.True(t, IsAvailable(goodVideo(now)))

	private := goodVideo(now)
	private.PrivacyStatus = "private"
	assert.False(t, IsAvailable(private))

	unlisted := goodVideo(now)
	unlisted.PrivacyStatus = "unlisted"
	assert.True(t, IsAvailable(unlisted))

	noEmbed := goodVideo(now)
	noEmbed.Embeddable = false
	assert.False(t, IsAvailable(noEmbed))

	processing := goodVideo(now)
	processing.UploadStatus = "uploaded"
	assert.False(t, IsAvailable(processing))
}

func TestEngagementScore(t *testing.T) {
	v := goodVideo(time.Now())
	// like ratio 0.025, sqrt(80000) ~ 282.8
	assert.InDelta(t, 7.07, EngagementScore(v), 0.01)

	zero := VideoHit{}
	assert.Equal(t, 0.0, EngagementScore(zero))
}

func TestQualityScore(t *testing.T) {
	now := time.Now()
	v := goodVideo(now)

	// base 50 + views>=50k (10) + ratio>=0.02 (10) + ideal duration (10) + trust 80/10 (8)
	assert.InDelta(t, 88.0, QualityScore(v, 80), 1e-9)

	viral := v
	viral.ViewCount = 500_000
	viral.LikeCount = 25_000
	// Hits every bonus; capped at 100.
	assert.Equal(t, 100.0, QualityScore(viral, 90))

	weak := v
	weak.ViewCount = 12_000
	weak.LikeCount = 80
	weak.Duration = 25 * time.Minute
	assert.InDelta(t, 57.0, QualityScore(weak, 70), 1e-9)
}

func TestParseISODuration(t *testing.T) {
	assert.Equal(t, 12*time.Minute+34*time.Second, ParseISODuration("PT12M34S"))
	assert.Equal(t, time.Hour+5*time.Minute, ParseISODuration("PT1H5M"))
	assert.Equal(t, 45*time.Second, ParseISODuration("PT45S"))
	assert.Equal(t, time.Duration(0), ParseISODuration("garbage"))
	assert.Equal(t, time.Duration(0), ParseISODuration(""))
}

func TestVideoURL(t *testing.T) {
	assert.Equal(t, "https://www.youtube.com/watch?v=abc123", VideoURL("abc123"))
}
