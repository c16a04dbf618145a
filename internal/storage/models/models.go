package models

import "time"

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type CulturalProfile struct {
	ID                   string       `json:"id"`
	UserID               string       `json:"userId"`
	Preferences          Preferences  `json:"preferences"`
	CulturalDNA          *CulturalDNA `json:"culturalDNA"`
	CompletionPercentage int          `json:"completionPercentage"`
	LastUpdated          time.Time    `json:"lastUpdated"`
}

// CulturalDNA is the aggregated affinity and insight blob attached to a profile.
type CulturalDNA struct {
	Insights       []GeneratedInsight `json:"insights"`
	QlooAffinities []Affinity         `json:"qlooAffinities"`
	TotalEntities  int                `json:"totalEntities"`
	ItemStatuses   []ItemStatus       `json:"itemStatuses,omitempty"`
}

// GeneratedInsight is one insight as returned by the narrative model.
type GeneratedInsight struct {
	Category               string   `json:"category"`
	Insight                string   `json:"insight"`
	CulturalConnections    []string `json:"culturalConnections"`
	RecommendedExperiences []string `json:"recommendedExperiences"`
	Confidence             float64  `json:"confidence"`
}

// Affinity is the taste-graph result for one preference item.
type Affinity struct {
	Category       Category `json:"category"`
	Query          string   `json:"query"`
	SearchEntities []Entity `json:"searchEntities"`
	Entities       []Entity `json:"insights"`
}

type ItemOutcome string

const (
	OutcomeOK      ItemOutcome = "ok"
	OutcomeFailed  ItemOutcome = "failed"
	OutcomeSkipped ItemOutcome = "skipped"
)

// ItemStatus records what happened to one preference item during aggregation.
type ItemStatus struct {
	Category Category    `json:"category"`
	Query    string      `json:"query"`
	Outcome  ItemOutcome `json:"outcome"`
	Reason   string      `json:"reason,omitempty"`
}

type CulturalInsight struct {
	ID              string    `json:"id"`
	ProfileID       string    `json:"profileId"`
	Category        string    `json:"category"`
	InsightText     string    `json:"insightText"`
	MatchPercentage int       `json:"matchPercentage"`
	Source          string    `json:"source"`
	CreatedAt       time.Time `json:"createdAt"`
}

const (
	SourceHybrid = "hybrid"
	SourceAI     = "ai"
)

type Recommendation struct {
	ID              string    `json:"id"`
	ProfileID       string    `json:"profileId"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Category        string    `json:"category"`
	MatchPercentage int       `json:"matchPercentage"`
	Location        string    `json:"location,omitempty"`
	ImageURL        string    `json:"imageUrl,omitempty"`
	ExternalID      string    `json:"externalId,omitempty"`
	Metadata        *Entity   `json:"metadata,omitempty"`
	IsBookmarked    bool      `json:"isBookmarked"`
	CreatedAt       time.Time `json:"createdAt"`
}

type QuestionnaireResponse struct {
	ID         string    `json:"id"`
	ProfileID  string    `json:"profileId"`
	QuestionID string    `json:"questionId"`
	Response   []string  `json:"response"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ProfileUpdate is a merge patch: nil fields keep their stored value.
type ProfileUpdate struct {
	Preferences          *Preferences
	CulturalDNA          *CulturalDNA
	CompletionPercentage *int
}

type RecommendationUpdate struct {
	IsBookmarked *bool
}
