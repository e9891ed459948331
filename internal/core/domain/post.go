package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// MaxPostLength is the provider's text limit, counted in characters.
const MaxPostLength = 280

// PostStatus represents the current state of a scheduled post
type PostStatus string

const (
	PostStatusScheduled  PostStatus = "scheduled"
	PostStatusProcessing PostStatus = "processing"
	PostStatusPosted     PostStatus = "posted"
	PostStatusFailed     PostStatus = "failed"
)

// IsTerminal reports whether the status is posted or failed.
func (s PostStatus) IsTerminal() bool {
	return s == PostStatusPosted || s == PostStatusFailed
}

// ScheduledPost is a queued publication job.
type ScheduledPost struct {
	ID       string   `json:"id"`
	OwnerID  string   `json:"owner_id"`
	Provider Provider `json:"provider"`
	Text     string   `json:"text"`

	// Media is the raw media-reference payload as submitted. It is parsed
	// leniently by MediaIDs and never validated on write.
	Media string `json:"media,omitempty"`

	Status PostStatus `json:"status"`

	// ScheduledFor nil means due immediately.
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
	PostedAt     *time.Time `json:"posted_at,omitempty"`
	ErrorMsg     *string    `json:"error_msg,omitempty"`

	ProviderPostID  *string `json:"provider_post_id,omitempty"`
	ProviderPostURL *string `json:"provider_post_url,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsDue reports whether the post may be claimed at now.
func (p *ScheduledPost) IsDue(now time.Time) bool {
	return p.ScheduledFor == nil || !p.ScheduledFor.After(now)
}

// CanRetry reports whether a manual retry is allowed from the current status.
func (p *ScheduledPost) CanRetry() bool {
	return p.Status == PostStatusFailed || p.Status == PostStatusScheduled
}

// CanCancel reports whether the post may be removed by its owner.
func (p *ScheduledPost) CanCancel() bool {
	return p.Status == PostStatusFailed || p.Status == PostStatusScheduled
}

// MediaIDs parses the media payload. Accepted shapes are a JSON array of
// strings or an array of objects carrying "media_id" or "id". Anything else,
// including malformed JSON, yields no media.
func (p *ScheduledPost) MediaIDs() []string {
	return ParseMediaIDs(p.Media)
}

// ParseMediaIDs is the lenient media-reference parser used by MediaIDs.
func ParseMediaIDs(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil
	}

	var ids []string
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			if s != "" {
				ids = append(ids, s)
			}
			continue
		}
		var ref struct {
			MediaID string `json:"media_id"`
			ID      string `json:"id"`
		}
		if err := json.Unmarshal(item, &ref); err != nil {
			continue
		}
		switch {
		case ref.MediaID != "":
			ids = append(ids, ref.MediaID)
		case ref.ID != "":
			ids = append(ids, ref.ID)
		}
	}
	return ids
}

// ClampText cuts text to MaxPostLength characters.
func ClampText(text string) string {
	r := []rune(text)
	if len(r) <= MaxPostLength {
		return text
	}
	return string(r[:MaxPostLength])
}

// ValidatePostText trims text and checks it is non-empty and within the limit.
func ValidatePostText(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", NewValidationError("text", "text is required")
	}
	if len([]rune(trimmed)) > MaxPostLength {
		return "", NewValidationError("text", "text exceeds 280 characters")
	}
	return trimmed, nil
}

// ParseScheduledFor parses an ISO-8601 timestamp. Absent or unparseable
// input means "due now" and yields nil, never an error.
func ParseScheduledFor(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// PostStats counts an owner's posts per status.
type PostStats struct {
	Scheduled  int64 `json:"scheduled"`
	Processing int64 `json:"processing"`
	Posted     int64 `json:"posted"`
	Failed     int64 `json:"failed"`
}

// Add records count posts under status.
func (s *PostStats) Add(status PostStatus, count int64) {
	switch status {
	case PostStatusScheduled:
		s.Scheduled += count
	case PostStatusProcessing:
		s.Processing += count
	case PostStatusPosted:
		s.Posted += count
	case PostStatusFailed:
		s.Failed += count
	}
}

// PublishedPost is the provider's acknowledgement of a created post.
type PublishedPost struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// PostResult is the outcome of processing one claimed post in a worker run.
type PostResult struct {
	PostID  string     `json:"post_id"`
	Status  PostStatus `json:"status"`
	URL     string     `json:"url,omitempty"`
	Error   string     `json:"error,omitempty"`
	Skipped bool       `json:"skipped,omitempty"`
}

// RunSummary is returned by one worker invocation.
type RunSummary struct {
	Processed int          `json:"processed"`
	Results   []PostResult `json:"results"`
	Reverted  int64        `json:"reverted"`
	Purged    int64        `json:"purged"`
}
