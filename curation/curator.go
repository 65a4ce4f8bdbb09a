package curation

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"deneme-server/db"
	"deneme-server/extraction"
	"deneme-server/models"
	"deneme-server/utils"
)

// Hard filters a video must pass before scoring. Values tuned for Turkish
// exam prep content: short clips are usually shorts or ads, very long ones
// are full lecture recordings students rarely finish.
const (
	minVideoDuration = 5 * time.Minute
	maxVideoDuration = 30 * time.Minute
	minViewCount     = 10_000
	minLikeRatio     = 0.005
	minCommentCount  = 10

	// Too new means engagement numbers are not meaningful yet; too old
	// means the content may predate curriculum changes.
	minVideoAge = 30 * 24 * time.Hour
	maxVideoAge = time.Duration(2.5 * 365 * 24 * float64(time.Hour))

	qualityBase = 50.0
	qualityCap  = 100.0

	defaultCurateResults = 5
	searchPerKeyword     = 10
)

// Curator runs the video curation pipeline against the trusted channel pool.
type Curator struct {
	pool     *pgxpool.Pool
	yt       *YouTubeClient
	claude   *extraction.ClaudeClient
	channels *ChannelManager
}

func NewCurator(pool *pgxpool.Pool, yt *YouTubeClient, claude *extraction.ClaudeClient, channels *ChannelManager) *Curator {
	return &Curator{pool: pool, yt: yt, claude: claude, channels: channels}
}

// PassesFilters applies the hard thresholds to one video.
func PassesFilters(v VideoHit, now time.Time) bool {
	if v.Duration < minVideoDuration || v.Duration > maxVideoDuration {
		return false
	}
	if v.ViewCount < minViewCount {
		return false
	}
	if LikeRatio(v) < minLikeRatio {
		return false
	}
	if v.CommentCount < minCommentCount {
		return false
	}
	if v.PublishedAt.IsZero() {
		return false
	}
	age := now.Sub(v.PublishedAt)
	if age < minVideoAge || age > maxVideoAge {
		return false
	}
	return true
}

// IsAvailable verifies the video can actually be watched and embedded.
func IsAvailable(v VideoHit) bool {
	if v.PrivacyStatus != "public" && v.PrivacyStatus != "unlisted" {
		return false
	}
	if !v.Embeddable {
		return false
	}
	return v.UploadStatus == "processed"
}

// LikeRatio is likes per view.
func LikeRatio(v VideoHit) float64 {
	if v.ViewCount == 0 {
		return 0
	}
	return float64(v.LikeCount) / float64(v.ViewCount)
}

// EngagementScore rewards a high like ratio weighted by reach.
func EngagementScore(v VideoHit) float64 {
	return LikeRatio(v) * math.Sqrt(float64(v.ViewCount))
}

// QualityScore combines view reach, like ratio, ideal duration and the
// channel's trust score into a 0..100 ranking value.
func QualityScore(v VideoHit, channelTrust float64) float64 {
	score := qualityBase
	if v.ViewCount >= 50_000 {
		score += 10
	}
	if v.ViewCount >= 250_000 {
		score += 10
	}
	ratio := LikeRatio(v)
	if ratio >= 0.02 {
		score += 10
	}
	if ratio >= 0.04 {
		score += 5
	}
	// The 10-20 minute range fits one study session.
	if v.Duration >= 10*time.Minute && v.Duration <= 20*time.Minute {
		score += 10
	}
	score += channelTrust / 10
	if score > qualityCap {
		score = qualityCap
	}
	return score
}

// GenerateKeywords asks Claude for search keywords for a subject and topic,
// falling back to query templates when the API is unavailable.
func (c *Curator) GenerateKeywords(ctx context.Context, subject, topic string) []string {
	if c.claude.Enabled() {
		prompt := fmt.Sprintf(`"%s" dersinin "%s" konusu için YouTube'da Türkçe konu anlatımı videosu aramakta kullanılacak 3-5 arama ifadesi üret. SADECE bir JSON dizisi döndür: ["...", "..."]`, subject, topic)
		raw, err := c.claude.Complete(ctx, prompt)
		if err == nil {
			var keywords []string
			if jsonErr := json.Unmarshal([]byte(extraction.StripCodeFences(raw)), &keywords); jsonErr == nil && len(keywords) > 0 {
				if len(keywords) > 5 {
					keywords = keywords[:5]
				}
				return keywords
			}
		}
		logrus.WithFields(logrus.Fields{"subject": subject, "topic": topic}).
			Warn("keyword generation failed, using templates")
	}
	return []string{
		fmt.Sprintf("%s konu anlatımı", topic),
		fmt.Sprintf("%s soru çözümü", topic),
		fmt.Sprintf("%s %s AYT TYT", subject, topic),
	}
}

// Curate runs the full pipeline for one subject and topic: keyword
// generation, per-channel search, filtering, availability check, scoring,
// and persistence of the winners as resources.
func (c *Curator) Curate(ctx context.Context, subject, topic string, maxResults int) ([]models.Resource, error) {
	if c.yt == nil {
		return nil, fmt.Errorf("youtube client not configured")
	}
	if maxResults <= 0 {
		maxResults = defaultCurateResults
	}
	subject = utils.NormalizeSubjectName(subject)

	channels, err := c.channels.List(ctx, subject, true)
	if err != nil {
		return nil, err
	}
	if len(channels) == 0 {
		return nil, fmt.Errorf("no active channels for subject %s", subject)
	}

	keywords := c.GenerateKeywords(ctx, subject, topic)
	now := time.Now()
	publishedAfter := now.Add(-maxVideoAge)

	type scored struct {
		video      VideoHit
		quality    float64
		engagement float64
	}
	seen := map[string]bool{}
	candidates := []scored{}

	for _, ch := range channels {
		for _, keyword := range keywords {
			hits, err := c.yt.SearchChannelVideos(ctx, ch.ChannelID, keyword, publishedAfter, searchPerKeyword)
			if err != nil {
				logrus.WithError(err).WithField("channel", ch.ChannelName).Warn("video search failed, skipping channel query")
				continue
			}
			for _, v := range hits {
				if seen[v.VideoID] {
					continue
				}
				seen[v.VideoID] = true
				if !PassesFilters(v, now) || !IsAvailable(v) {
					continue
				}
				candidates = append(candidates, scored{
					video:      v,
					quality:    QualityScore(v, ch.TrustScore),
					engagement: EngagementScore(v),
				})
			}
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].quality != candidates[j].quality {
			return candidates[i].quality > candidates[j].quality
		}
		return candidates[i].engagement > candidates[j].engagement
	})
	if len(candidates) > maxResults {
		candidates = candidates[:maxResults]
	}

	resources := make([]models.Resource, 0, len(candidates))
	for _, cand := range candidates {
		res, err := c.storeVideo(ctx, cand.video, subject, topic, cand.quality, cand.engagement)
		if err != nil {
			return resources, err
		}
		resources = append(resources, *res)
	}

	db.LogSystemEvent(c.pool, "api", "resources_curated", subject,
		fmt.Sprintf("topic %q: %d video(s) stored", topic, len(resources)))
	return resources, nil
}

func (c *Curator) storeVideo(ctx context.Context, v VideoHit, subject, topic string, quality, engagement float64) (*models.Resource, error) {
	extra, err := json.Marshal(map[string]interface{}{
		"video_id":         v.VideoID,
		"channel_id":       v.ChannelID,
		"duration_seconds": int(v.Duration.Seconds()),
		"view_count":       v.ViewCount,
		"like_count":       v.LikeCount,
		"comment_count":    v.CommentCount,
		"engagement_score": engagement,
		"published_at":     v.PublishedAt.Format(time.RFC3339),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal video metadata: %w", err)
	}

	res := &models.Resource{
		ID:           uuid.New().String(),
		Name:         v.Title,
		Type:         "youtube",
		URL:          VideoURL(v.VideoID),
		SubjectName:  &subject,
		Topic:        &topic,
		QualityScore: &quality,
		IsActive:     true,
	}
	if v.Description != "" {
		res.Description = &v.Description
	}
	if v.ThumbnailURL != "" {
		res.ThumbnailURL = &v.ThumbnailURL
	}

	err = c.pool.QueryRow(ctx, `
		INSERT INTO resources (id, name, type, url, description, subject_name, topic,
		                       thumbnail_url, quality_score, extra_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (url) DO UPDATE SET
			quality_score = EXCLUDED.quality_score,
			extra_data = EXCLUDED.extra_data,
			is_active = TRUE
		RETURNING id, created_at
	`, res.ID, res.Name, res.Type, res.URL, res.Description, res.SubjectName,
		res.Topic, res.ThumbnailURL, res.QualityScore, extra).Scan(&res.ID, &res.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to store resource: %w", err)
	}
	return res, nil
}

// AttachToRecommendation links curated resources to a recommendation.
func (c *Curator) AttachToRecommendation(ctx context.Context, recommendationID string, resourceIDs []string) error {
	for _, resourceID := range resourceIDs {
		_, err := c.pool.Exec(ctx, `
			INSERT INTO recommendation_resources (id, recommendation_id, resource_id)
			VALUES ($1, $2, $3)
			ON CONFLICT (recommendation_id, resource_id) DO NOTHING
		`, uuid.New().String(), recommendationID, resourceID)
		if err != nil {
			return fmt.Errorf("failed to link resource %s: %w", resourceID, err)
		}
	}
	return nil
}

// ListResources returns stored resources filtered by subject and topic.
func (c *Curator) ListResources(ctx context.Context, subject, topic string) ([]models.Resource, error) {
	query := `
		SELECT id, name, type, url, description, subject_name, topic,
		       thumbnail_url, quality_score, is_active, created_at
		FROM resources WHERE is_active = TRUE`
	args := []interface{}{}
	if subject != "" {
		args = append(args, utils.NormalizeSubjectName(subject))
		query += fmt.Sprintf(" AND subject_name = $%d", len(args))
	}
	if topic != "" {
		args = append(args, topic)
		query += fmt.Sprintf(" AND topic = $%d", len(args))
	}
	query += " ORDER BY quality_score DESC NULLS LAST, created_at DESC"

	rows, err := c.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query resources: %w", err)
	}
	defer rows.Close()

	resources := []models.Resource{}
	for rows.Next() {
		var r models.Resource
		if err := rows.Scan(&r.ID, &r.Name, &r.Type, &r.URL, &r.Description,
			&r.SubjectName, &r.Topic, &r.ThumbnailURL, &r.QualityScore,
			&r.IsActive, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan resource: %w", err)
		}
		resources = append(resources, r)
	}
	return resources, rows.Err()
}
