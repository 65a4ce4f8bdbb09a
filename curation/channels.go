package curation

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"deneme-server/db"
	"deneme-server/models"
	"deneme-server/utils"
)

const (
	DiscoveredAuto   = "auto_search"
	DiscoveredManual = "manual_add"
	DiscoveredSeed   = "seed_file"

	// Trust starts lower for channels the search found on its own than for
	// ones a human vouched for.
	autoTrustScore   = 70.0
	manualTrustScore = 80.0

	discoveryKeep = 5
)

// ChannelManager maintains the pool of trusted channels that video curation
// draws from.
type ChannelManager struct {
	pool *pgxpool.Pool
	yt   *YouTubeClient
}

func NewChannelManager(pool *pgxpool.Pool, yt *YouTubeClient) *ChannelManager {
	return &ChannelManager{pool: pool, yt: yt}
}

// DiscoverChannels searches YouTube for teaching channels per subject and
// stores the strongest hits. Existing channels keep their trust score and
// discovery origin; only their statistics are refreshed.
func (m *ChannelManager) DiscoverChannels(ctx context.Context, subjects []string, perQuery int64) (int, error) {
	if m.yt == nil {
		return 0, fmt.Errorf("youtube client not configured")
	}
	if perQuery <= 0 {
		perQuery = 10
	}

	added := 0
	for _, subject := range subjects {
		subject = utils.NormalizeSubjectName(subject)
		query := fmt.Sprintf("%s AYT TYT konu anlatımı", subject)

		hits, err := m.yt.SearchChannels(ctx, query, perQuery)
		if err != nil {
			logrus.WithError(err).WithField("subject", subject).Warn("channel discovery search failed")
			continue
		}

		sort.Slice(hits, func(i, j int) bool {
			return hits[i].SubscriberCount > hits[j].SubscriberCount
		})
		if len(hits) > discoveryKeep {
			hits = hits[:discoveryKeep]
		}

		for _, hit := range hits {
			inserted, err := m.upsert(ctx, hit, subject, autoTrustScore, DiscoveredAuto, nil)
			if err != nil {
				return added, err
			}
			if inserted {
				added++
			}
		}
	}
	if added > 0 {
		db.LogSystemEvent(m.pool, "api", "channels_discovered", "",
			fmt.Sprintf("%d new channel(s) across %d subject(s)", added, len(subjects)))
	}
	return added, nil
}

// AddManual registers a channel by its YouTube ID with a human-assigned
// trust score.
func (m *ChannelManager) AddManual(ctx context.Context, channelID, subject string, trustScore *float64, notes *string) (*models.YouTubeChannel, error) {
	if m.yt == nil {
		return nil, fmt.Errorf("youtube client not configured")
	}
	hits, err := m.yt.ChannelDetails(ctx, []string{channelID})
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, fmt.Errorf("channel %s not found on YouTube", channelID)
	}

	trust := manualTrustScore
	if trustScore != nil {
		trust = *trustScore
	}
	subject = utils.NormalizeSubjectName(subject)
	if _, err := m.upsert(ctx, hits[0], subject, trust, DiscoveredManual, notes); err != nil {
		return nil, err
	}
	return m.getByChannelID(ctx, channelID)
}

// seedEntry is one row of the channels.yaml seed file.
type seedEntry struct {
	ChannelID  string   `yaml:"channel_id"`
	Subject    string   `yaml:"subject"`
	TrustScore *float64 `yaml:"trust_score"`
	Notes      string   `yaml:"notes"`
}

type seedFile struct {
	Channels []seedEntry `yaml:"channels"`
}

// LoadSeedFile imports channels from a YAML file at startup. Missing file
// is not an error; the pool can be built entirely through the API.
func (m *ChannelManager) LoadSeedFile(ctx context.Context, path string) (int, error) {
	if path == "" {
		return 0, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read channel seed file: %w", err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return 0, fmt.Errorf("failed to parse channel seed file %s: %w", path, err)
	}

	added := 0
	for _, entry := range seed.Channels {
		if entry.ChannelID == "" || entry.Subject == "" {
			logrus.WithField("entry", entry).Warn("skipping incomplete channel seed entry")
			continue
		}
		trust := manualTrustScore
		if entry.TrustScore != nil {
			trust = *entry.TrustScore
		}
		hit := ChannelHit{ChannelID: entry.ChannelID, Title: entry.ChannelID}
		if m.yt != nil {
			if details, err := m.yt.ChannelDetails(ctx, []string{entry.ChannelID}); err == nil && len(details) > 0 {
				hit = details[0]
			}
		}
		inserted, err := m.upsert(ctx, hit, utils.NormalizeSubjectName(entry.Subject), trust, DiscoveredSeed, utils.StringPtr(entry.Notes))
		if err != nil {
			return added, err
		}
		if inserted {
			added++
		}
	}
	return added, nil
}

// upsert inserts a channel or refreshes the statistics of an existing one.
// Returns whether a new row was created.
func (m *ChannelManager) upsert(ctx context.Context, hit ChannelHit, subject string, trust float64, via string, notes *string) (bool, error) {
	tag, err := m.pool.Exec(ctx, `
		INSERT INTO youtube_channels (id, channel_id, channel_name, subject_name,
		                              subscriber_count, video_count, view_count,
		                              thumbnail_url, description, custom_url,
		                              trust_score, discovered_via, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (channel_id) DO UPDATE SET
			subscriber_count = EXCLUDED.subscriber_count,
			video_count = EXCLUDED.video_count,
			view_count = EXCLUDED.view_count,
			updated_at = CURRENT_TIMESTAMP
	`, uuid.New().String(), hit.ChannelID, hit.Title, subject,
		hit.SubscriberCount, hit.VideoCount, hit.ViewCount,
		utils.StringPtr(hit.ThumbnailURL), utils.StringPtr(hit.Description),
		utils.StringPtr(hit.CustomURL), trust, via, notes)
	if err != nil {
		return false, fmt.Errorf("failed to upsert channel %s: %w", hit.ChannelID, err)
	}
	return tag.String() == "INSERT 0 1", nil
}

// List returns channels, optionally only active ones for one subject.
func (m *ChannelManager) List(ctx context.Context, subject string, activeOnly bool) ([]models.YouTubeChannel, error) {
	query := `
		SELECT id, channel_id, channel_name, subject_name, subscriber_count,
		       video_count, view_count, thumbnail_url, description, custom_url,
		       trust_score, discovered_via, notes, is_active, created_at, updated_at
		FROM youtube_channels WHERE 1=1`
	args := []interface{}{}
	if subject != "" {
		args = append(args, utils.NormalizeSubjectName(subject))
		query += fmt.Sprintf(" AND subject_name = $%d", len(args))
	}
	if activeOnly {
		query += " AND is_active = TRUE"
	}
	query += " ORDER BY trust_score DESC, subscriber_count DESC"

	rows, err := m.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query channels: %w", err)
	}
	defer rows.Close()

	channels := []models.YouTubeChannel{}
	for rows.Next() {
		var ch models.YouTubeChannel
		if err := rows.Scan(&ch.ID, &ch.ChannelID, &ch.ChannelName, &ch.SubjectName,
			&ch.SubscriberCount, &ch.VideoCount, &ch.ViewCount, &ch.ThumbnailURL,
			&ch.Description, &ch.CustomURL, &ch.TrustScore, &ch.DiscoveredVia,
			&ch.Notes, &ch.IsActive, &ch.CreatedAt, &ch.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan channel: %w", err)
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}

// Deactivate removes a channel from curation without deleting its history.
func (m *ChannelManager) Deactivate(ctx context.Context, id string) error {
	tag, err := m.pool.Exec(ctx, `
		UPDATE youtube_channels SET is_active = FALSE, updated_at = CURRENT_TIMESTAMP WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate channel: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("channel %s not found", id)
	}
	return nil
}

// RefreshStats re-reads subscriber and view counts for all active channels.
func (m *ChannelManager) RefreshStats(ctx context.Context) error {
	if m.yt == nil {
		return fmt.Errorf("youtube client not configured")
	}
	channels, err := m.List(ctx, "", true)
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(channels))
	for _, ch := range channels {
		ids = append(ids, ch.ChannelID)
	}
	if len(ids) == 0 {
		return nil
	}

	hits, err := m.yt.ChannelDetails(ctx, ids)
	if err != nil {
		return err
	}
	for _, hit := range hits {
		_, err := m.pool.Exec(ctx, `
			UPDATE youtube_channels
			SET subscriber_count = $2, video_count = $3, view_count = $4,
			    updated_at = CURRENT_TIMESTAMP
			WHERE channel_id = $1
		`, hit.ChannelID, hit.SubscriberCount, hit.VideoCount, hit.ViewCount)
		if err != nil {
			return fmt.Errorf("failed to refresh stats for %s: %w", hit.ChannelID, err)
		}
	}
	return nil
}

func (m *ChannelManager) getByChannelID(ctx context.Context, channelID string) (*models.YouTubeChannel, error) {
	var ch models.YouTubeChannel
	err := m.pool.QueryRow(ctx, `
		SELECT id, channel_id, channel_name, subject_name, subscriber_count,
		       video_count, view_count, thumbnail_url, description, custom_url,
		       trust_score, discovered_via, notes, is_active, created_at, updated_at
		FROM youtube_channels WHERE channel_id = $1
	`, channelID).Scan(&ch.ID, &ch.ChannelID, &ch.ChannelName, &ch.SubjectName,
		&ch.SubscriberCount, &ch.VideoCount, &ch.ViewCount, &ch.ThumbnailURL,
		&ch.Description, &ch.CustomURL, &ch.TrustScore, &ch.DiscoveredVia,
		&ch.Notes, &ch.IsActive, &ch.CreatedAt, &ch.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to load channel %s: %w", channelID, err)
	}
	return &ch, nil
}
