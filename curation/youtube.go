// Package curation discovers trusted YouTube channels and curates study
// videos for weak subjects. Candidates pass through hard filters first,
// then get ranked by engagement and quality before being stored as
// resources.
package curation

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// YouTubeClient wraps the YouTube Data API calls the curator needs.
type YouTubeClient struct {
	svc *youtube.Service
}

func NewYouTubeClient(ctx context.Context, apiKey string) (*YouTubeClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("youtube API key not configured")
	}
	svc, err := youtube.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube service: %w", err)
	}
	return &YouTubeClient{svc: svc}, nil
}

// ChannelHit is a channel returned from a discovery search.
type ChannelHit struct {
	ChannelID       string
	Title           string
	Description     string
	CustomURL       string
	ThumbnailURL    string
	SubscriberCount int64
	VideoCount      int64
	ViewCount       int64
}

// VideoHit holds everything the filter chain needs about one video.
type VideoHit struct {
	VideoID       string
	ChannelID     string
	Title         string
	Description   string
	ThumbnailURL  string
	PublishedAt   time.Time
	Duration      time.Duration
	ViewCount     int64
	LikeCount     int64
	CommentCount  int64
	PrivacyStatus string
	Embeddable    bool
	UploadStatus  string
}

// SearchChannels looks up channels for a query, Turkish region, and loads
// their statistics.
func (c *YouTubeClient) SearchChannels(ctx context.Context, query string, maxResults int64) ([]ChannelHit, error) {
	resp, err := c.svc.Search.List([]string{"snippet"}).
		Q(query).
		Type("channel").
		RegionCode("TR").
		RelevanceLanguage("tr").
		MaxResults(maxResults).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("channel search failed for %q: %w", query, err)
	}

	ids := make([]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id != nil && item.Id.ChannelId != "" {
			ids = append(ids, item.Id.ChannelId)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return c.ChannelDetails(ctx, ids)
}

// ChannelDetails loads snippet and statistics for the given channel IDs.
func (c *YouTubeClient) ChannelDetails(ctx context.Context, channelIDs []string) ([]ChannelHit, error) {
	resp, err := c.svc.Channels.List([]string{"snippet", "statistics"}).
		Id(channelIDs...).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("channel details lookup failed: %w", err)
	}

	hits := make([]ChannelHit, 0, len(resp.Items))
	for _, ch := range resp.Items {
		hit := ChannelHit{ChannelID: ch.Id}
		if ch.Snippet != nil {
			hit.Title = ch.Snippet.Title
			hit.Description = ch.Snippet.Description
			hit.CustomURL = ch.Snippet.CustomUrl
			if ch.Snippet.Thumbnails != nil && ch.Snippet.Thumbnails.Medium != nil {
				hit.ThumbnailURL = ch.Snippet.Thumbnails.Medium.Url
			}
		}
		if ch.Statistics != nil {
			hit.SubscriberCount = int64(ch.Statistics.SubscriberCount)
			hit.VideoCount = int64(ch.Statistics.VideoCount)
			hit.ViewCount = int64(ch.Statistics.ViewCount)
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// SearchChannelVideos searches for videos matching the query inside one
// channel and loads full details for each hit.
func (c *YouTubeClient) SearchChannelVideos(ctx context.Context, channelID, query string, publishedAfter time.Time, maxResults int64) ([]VideoHit, error) {
	call := c.svc.Search.List([]string{"snippet"}).
		Q(query).
		Type("video").
		ChannelId(channelID).
		RegionCode("TR").
		RelevanceLanguage("tr").
		Order("relevance").
		MaxResults(maxResults).
		Context(ctx)
	if !publishedAfter.IsZero() {
		call = call.PublishedAfter(publishedAfter.Format(time.RFC3339))
	}
	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("video search failed for %q in channel %s: %w", query, channelID, err)
	}

	ids := make([]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id != nil && item.Id.VideoId != "" {
			ids = append(ids, item.Id.VideoId)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return c.VideoDetails(ctx, ids)
}

// VideoDetails loads statistics, duration and availability status.
func (c *YouTubeClient) VideoDetails(ctx context.Context, videoIDs []string) ([]VideoHit, error) {
	resp, err := c.svc.Videos.List([]string{"snippet", "statistics", "contentDetails", "status"}).
		Id(videoIDs...).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("video details lookup failed: %w", err)
	}

	hits := make([]VideoHit, 0, len(resp.Items))
	for _, v := range resp.Items {
		hit := VideoHit{VideoID: v.Id}
		if v.Snippet != nil {
			hit.ChannelID = v.Snippet.ChannelId
			hit.Title = v.Snippet.Title
			hit.Description = v.Snippet.Description
			if t, err := time.Parse(time.RFC3339, v.Snippet.PublishedAt); err == nil {
				hit.PublishedAt = t
			}
			if v.Snippet.Thumbnails != nil && v.Snippet.Thumbnails.Medium != nil {
				hit.ThumbnailURL = v.Snippet.Thumbnails.Medium.Url
			}
		}
		if v.Statistics != nil {
			hit.ViewCount = int64(v.Statistics.ViewCount)
			hit.LikeCount = int64(v.Statistics.LikeCount)
			hit.CommentCount = int64(v.Statistics.CommentCount)
		}
		if v.ContentDetails != nil {
			hit.Duration = ParseISODuration(v.ContentDetails.Duration)
		}
		if v.Status != nil {
			hit.PrivacyStatus = v.Status.PrivacyStatus
			hit.Embeddable = v.Status.Embeddable
			hit.UploadStatus = v.Status.UploadStatus
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

var isoDurationRe = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// ParseISODuration converts the API's ISO 8601 duration form (PT12M34S)
// into a time.Duration. Malformed input parses as zero.
func ParseISODuration(s string) time.Duration {
	m := isoDurationRe.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	var d time.Duration
	if m[1] != "" {
		h, _ := strconv.Atoi(m[1])
		d += time.Duration(h) * time.Hour
	}
	if m[2] != "" {
		min, _ := strconv.Atoi(m[2])
		d += time.Duration(min) * time.Minute
	}
	if m[3] != "" {
		sec, _ := strconv.Atoi(m[3])
		d += time.Duration(sec) * time.Second
	}
	return d
}

// VideoURL builds the canonical watch URL.
func VideoURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}
