package models

import (
	"encoding/json"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Conversation categories. General is the default and is never matched by
// keyword, so it sticks until another bucket matches.
const (
	CategoryGeneral   = "general"
	CategoryTechnical = "technical"
	CategoryPlanning  = "planning"
	CategoryAnalysis  = "analysis"
	CategoryCreative  = "creative"
)

// Message is a single turn entry in a conversation. Immutable once appended.
type Message struct {
	ID        string         `json:"id"`
	Role      Role           `json:"role"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Conversation is an ordered exchange of user/assistant messages with
// auto-derived title, category and tags.
type Conversation struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Messages  []Message      `json:"messages"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Tags      []string       `json:"tags"`
	Category  string         `json:"category"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Memory is a captured piece of user content, independent of the
// conversation it was captured from.
type Memory struct {
	ID                string         `json:"id"`
	Content           string         `json:"content"`
	Category          string         `json:"category"`
	Timestamp         time.Time      `json:"timestamp"`
	Tags              []string       `json:"tags"`
	SearchableContent string         `json:"searchable_content"`
	RelevanceScore    float64        `json:"relevance_score"`
	Metadata          map[string]any `json:"metadata,omitempty"`
}

// Fact is stored and exported but not produced by any operation yet;
// reserved for structured knowledge extraction.
type Fact struct {
	ID         string         `json:"id"`
	Fact       string         `json:"fact"`
	Category   string         `json:"category"`
	Confidence float64        `json:"confidence"`
	Source     string         `json:"source"`
	Timestamp  time.Time      `json:"timestamp"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Stat is one metric value for one day. Recomputed in place, never
// incremented.
type Stat struct {
	ID         string         `json:"id"`
	MetricName string         `json:"metric_name"`
	Value      float64        `json:"value"`
	Date       string         `json:"date"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// StatID builds the primary key for a metric on a given day ("metric-date").
func StatID(metric, date string) string {
	return metric + "-" + date
}

// Setting is a single keyed value; the record id equals the key.
type Setting struct {
	ID        string          `json:"id"`
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Export is a full snapshot of all five collections.
type Export struct {
	Conversations []*Conversation `json:"conversations"`
	Memories      []*Memory       `json:"memories"`
	Facts         []*Fact         `json:"facts"`
	Stats         []*Stat         `json:"stats"`
	Settings      []*Setting      `json:"settings"`
	ExportedAt    time.Time       `json:"exportedAt"`
}
