// Package model defines the domain types used across the application.
//
// Backend records are consumed as-is; the only invariants enforced here are
// lenient decoding of identifiers and timestamps.
package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Subscription status values.
const (
	SubscriptionDisabled = 0
	SubscriptionEnabled  = 1
)

// Article status values, mirroring the backend data status.
const (
	ArticleActive  = 1
	ArticleDeleted = 1000
)

// Tag status values.
const (
	TagDisabled = 0
	TagEnabled  = 1
	TagBlocked  = 2
)

// Message task enums.
const (
	MessageTypeMessage = 0
	MessageTypeWebhook = 1

	TaskDisabled = 0
	TaskEnabled  = 1
)

// UnknownSource is the display name used for articles without a source name.
const UnknownSource = "Unknown source"

// ListResult is the shape of every paginated list response.
type ListResult[T any] struct {
	List  []T `json:"list"`
	Total int `json:"total"`
}

// Subscription represents a subscribed WeChat public account.
type Subscription struct {
	ID             ID         `json:"id"`
	MpID           string     `json:"mp_id,omitempty"`
	Name           string     `json:"mp_name"`
	Cover          string     `json:"mp_cover"`
	Intro          string     `json:"mp_intro"`
	Status         int        `json:"status"`
	SyncTime       Timestamp  `json:"sync_time"`
	RSSURL         string     `json:"rss_url,omitempty"`
	ArticleCount   int        `json:"article_count"`
	MinPublishTime *Timestamp `json:"min_publish_time,omitempty"`
	MaxPublishTime *Timestamp `json:"max_publish_time,omitempty"`
}

// Key returns the identifier used in subscription URLs.
func (s Subscription) Key() string {
	if s.MpID != "" {
		return s.MpID
	}
	return string(s.ID)
}

// Enabled reports whether the subscription is active.
func (s Subscription) Enabled() bool {
	return s.Status == SubscriptionEnabled
}

// MpItem is a search hit returned when looking up public accounts.
type MpItem struct {
	MpID   string `json:"mp_id"`
	Name   string `json:"mp_name"`
	Avatar string `json:"avatar"`
}

// Article is a single fetched article.
type Article struct {
	ID          ID        `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Content     string    `json:"content,omitempty"`
	URL         string    `json:"url,omitempty"`
	PicURL      string    `json:"pic_url,omitempty"`
	MpID        string    `json:"mp_id"`
	MpName      string    `json:"mp_name"`
	PublishTime Timestamp `json:"publish_time"`
	CreatedAt   Timestamp `json:"created_at"`
	Status      int       `json:"status"`
	Tags        []TagRef  `json:"tags,omitempty"`
	TagNames    []TagRef  `json:"tag_names,omitempty"`
}

// SourceName returns the article's source display name.
func (a Article) SourceName() string {
	if strings.TrimSpace(a.MpName) == "" {
		return UnknownSource
	}
	return a.MpName
}

// Keywords returns the trimmed, non-empty tag names attached to the article.
func (a Article) Keywords() []string {
	refs := a.Tags
	if len(refs) == 0 {
		refs = a.TagNames
	}
	var out []string
	for _, r := range refs {
		if name := strings.TrimSpace(r.Name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// Date returns the publish time, or the creation time when the article has none.
func (a Article) Date() time.Time {
	if !a.PublishTime.IsZero() {
		return a.PublishTime.Time
	}
	return a.CreatedAt.Time
}

// StatusLabel renders the article status.
func (a Article) StatusLabel() string {
	switch a.Status {
	case ArticleActive:
		return "normal"
	case ArticleDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// TagRef is a tag attached to an article. The backend sends either plain
// strings or objects carrying "name" or "tag_name".
type TagRef struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// UnmarshalJSON accepts a string or an object.
func (t *TagRef) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &t.Name)
	}
	var raw struct {
		ID      ID     `json:"id"`
		Name    string `json:"name"`
		TagName string `json:"tag_name"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("decode tag: %w", err)
	}
	t.ID = string(raw.ID)
	t.Name = raw.Name
	if t.Name == "" {
		t.Name = raw.TagName
	}
	return nil
}

// Tag is a topic grouping of subscriptions.
type Tag struct {
	ID           ID        `json:"id"`
	Name         string    `json:"name"`
	Cover        string    `json:"cover,omitempty"`
	Intro        string    `json:"intro,omitempty"`
	Status       int       `json:"status"`
	MpsID        string    `json:"mps_id,omitempty"`
	ArticleCount int       `json:"article_count,omitempty"`
	CreatedAt    Timestamp `json:"created_at"`
	UpdatedAt    Timestamp `json:"updated_at"`
}

// StatusLabel renders the tag status.
func (t Tag) StatusLabel() string {
	switch t.Status {
	case TagEnabled:
		return "enabled"
	case TagBlocked:
		return "blocked"
	default:
		return "disabled"
	}
}

// Mps decodes the associated subscription list.
func (t Tag) Mps() ([]MpRef, error) {
	return DecodeMpRefs(t.MpsID)
}

// MessageTask is a scheduled notification definition.
type MessageTask struct {
	ID              ID        `json:"id"`
	Name            string    `json:"name"`
	MessageType     int       `json:"message_type"`
	MessageTemplate string    `json:"message_template"`
	WebHookURL      string    `json:"web_hook_url"`
	MpsID           string    `json:"mps_id"`
	CronExp         string    `json:"cron_exp"`
	Status          int       `json:"status"`
	CreatedAt       Timestamp `json:"created_at"`
	UpdatedAt       Timestamp `json:"updated_at"`
}

// Mps decodes the target subscription list.
func (m MessageTask) Mps() ([]MpRef, error) {
	return DecodeMpRefs(m.MpsID)
}

// TypeLabel renders the message type.
func (m MessageTask) TypeLabel() string {
	if m.MessageType == MessageTypeWebhook {
		return "webhook"
	}
	return "message"
}

// Title returns the task name, falling back to its template.
func (m MessageTask) Title() string {
	if m.Name != "" {
		return m.Name
	}
	if m.MessageTemplate != "" {
		return m.MessageTemplate
	}
	return "-"
}

// MpRef references a subscription from a task or tag. It decodes from a
// plain id string or from an {"id", "mp_name"} object.
type MpRef struct {
	ID   string `json:"id"`
	Name string `json:"mp_name,omitempty"`
}

// UnmarshalJSON accepts a string or an object.
func (r *MpRef) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &r.ID)
	}
	var raw struct {
		ID     ID     `json:"id"`
		MpID   string `json:"mp_id"`
		MpName string `json:"mp_name"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("decode mp ref: %w", err)
	}
	r.ID = string(raw.ID)
	if r.ID == "" {
		r.ID = raw.MpID
	}
	r.Name = raw.MpName
	return nil
}

// DecodeMpRefs parses the JSON string stored in "mps_id" fields.
func DecodeMpRefs(raw string) ([]MpRef, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var refs []MpRef
	if err := json.Unmarshal([]byte(raw), &refs); err != nil {
		return nil, fmt.Errorf("decode mps_id: %w", err)
	}
	return refs, nil
}

// EncodeMpRefs serialises a subscription list into the "mps_id" wire form.
func EncodeMpRefs(refs []MpRef) (string, error) {
	if refs == nil {
		refs = []MpRef{}
	}
	b, err := json.Marshal(refs)
	if err != nil {
		return "", fmt.Errorf("encode mps_id: %w", err)
	}
	return string(b), nil
}

// API key permissions.
const (
	PermissionRead      = "read"
	PermissionReadWrite = "read_write"
)

// ApiKey is a programmatic access token issued by the backend.
type ApiKey struct {
	ID          ID         `json:"id"`
	Name        string     `json:"name"`
	UserID      string     `json:"user_id,omitempty"`
	Permissions string     `json:"permissions"`
	IsActive    bool       `json:"is_active"`
	LastUsedAt  *Timestamp `json:"last_used_at,omitempty"`
	CreatedAt   Timestamp  `json:"created_at"`
	UpdatedAt   Timestamp  `json:"updated_at"`
	Key         string     `json:"key,omitempty"`
}

// ApiKeyLog is one recorded use of an API key.
type ApiKeyLog struct {
	ID         ID        `json:"id"`
	ApiKeyID   string    `json:"api_key_id"`
	Endpoint   string    `json:"endpoint"`
	Method     string    `json:"method"`
	IPAddress  string    `json:"ip_address,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	StatusCode int       `json:"status_code"`
	CreatedAt  Timestamp `json:"created_at"`
}

// PageResult is the shape of 1-based paginated responses.
type PageResult[T any] struct {
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	List     []T `json:"list"`
}

// ConfigEntry is a key/value backend setting. The key is immutable.
type ConfigEntry struct {
	Key         string `json:"config_key"`
	Value       string `json:"config_value"`
	Description string `json:"description,omitempty"`
}

// User is the logged-in account profile.
type User struct {
	Username string `json:"username"`
	Nickname string `json:"nickname,omitempty"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
}

// Token is the login response.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// SysResources is a snapshot of backend host usage.
type SysResources struct {
	CPU struct {
		Percent float64 `json:"percent"`
		Cores   int     `json:"cores"`
		Threads int     `json:"threads"`
	} `json:"cpu"`
	Memory UsageGB `json:"memory"`
	Disk   UsageGB `json:"disk"`
}

// UsageGB is a percent/total/used/free quadruple reported in gigabytes.
type UsageGB struct {
	Percent float64 `json:"percent"`
	Total   float64 `json:"total"`
	Used    float64 `json:"used"`
	Free    float64 `json:"free"`
}

// SysInfo is the loosely typed system information document.
type SysInfo map[string]any

// ExportRecord is one generated export archive.
type ExportRecord struct {
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	Path      string    `json:"path,omitempty"`
	CreatedAt Timestamp `json:"created_time"`
}

// ExportFile is a downloaded export payload.
type ExportFile struct {
	Name        string
	ContentType string
	Data        []byte
}
