// Package sqlite is the durable storage.Store backend.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/culture-compass/backend/internal/storage"
	"github.com/culture-compass/backend/internal/storage/models"
	"github.com/culture-compass/backend/pkg/logger"
)

type Client struct {
	db  *sql.DB
	now func() time.Time
}

var _ storage.Store = (*Client)(nil)

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps writes serialized and PRAGMAs applied.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db, now: time.Now}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE COLLATE NOCASE,
		name TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS cultural_profiles (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL UNIQUE,
		preferences TEXT NOT NULL,
		cultural_dna TEXT,
		completion_percentage INTEGER NOT NULL DEFAULT 0,
		last_updated INTEGER NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS cultural_insights (
		id TEXT PRIMARY KEY,
		profile_id TEXT NOT NULL,
		category TEXT NOT NULL,
		insight_text TEXT NOT NULL,
		match_percentage INTEGER,
		source TEXT,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (profile_id) REFERENCES cultural_profiles(id)
	);
	CREATE INDEX IF NOT EXISTS idx_insights_profile ON cultural_insights(profile_id, created_at);

	CREATE TABLE IF NOT EXISTS recommendations (
		id TEXT PRIMARY KEY,
		profile_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL,
		match_percentage INTEGER,
		location TEXT,
		image_url TEXT,
		external_id TEXT,
		metadata TEXT,
		is_bookmarked INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (profile_id) REFERENCES cultural_profiles(id)
	);
	CREATE INDEX IF NOT EXISTS idx_recommendations_profile ON recommendations(profile_id, created_at);

	CREATE TABLE IF NOT EXISTS questionnaire_responses (
		id TEXT PRIMARY KEY,
		profile_id TEXT NOT NULL,
		question_id TEXT NOT NULL,
		response TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (profile_id) REFERENCES cultural_profiles(id)
	);
	CREATE INDEX IF NOT EXISTS idx_responses_profile ON questionnaire_responses(profile_id, created_at);
	`

	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) CreateUser(ctx context.Context, email, name string) (*models.User, error) {
	user := &models.User{
		ID:        uuid.New().String(),
		Email:     email,
		Name:      name,
		CreatedAt: c.now(),
	}

	_, err := c.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, created_at) VALUES (?, ?, ?, ?)`,
		user.ID, user.Email, user.Name, user.CreatedAt.UnixNano(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("user %s: %w", email, storage.ErrConflict)
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	logger.Debug("User created", zap.String("user_id", user.ID))
	return user, nil
}

func (c *Client) GetUser(ctx context.Context, id string) (*models.User, error) {
	row := c.db.QueryRowContext(ctx, `SELECT id, email, name, created_at FROM users WHERE id = ?`, id)
	user, err := scanUser(row)
	if err != nil {
		return nil, notFound(err, "user "+id)
	}
	return user, nil
}

func (c *Client) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := c.db.QueryRowContext(ctx, `SELECT id, email, name, created_at FROM users WHERE email = ?`, email)
	user, err := scanUser(row)
	if err != nil {
		return nil, notFound(err, "user "+email)
	}
	return user, nil
}

func (c *Client) CreateProfile(ctx context.Context, profile *models.CulturalProfile) (*models.CulturalProfile, error) {
	if _, err := c.GetUser(ctx, profile.UserID); err != nil {
		return nil, err
	}

	created := *profile
	created.ID = uuid.New().String()
	created.LastUpdated = c.now()

	prefsJSON, dnaJSON, err := encodeProfile(&created)
	if err != nil {
		return nil, err
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO cultural_profiles (id, user_id, preferences, cultural_dna, completion_percentage, last_updated)
		VALUES (?, ?, ?, ?, ?, ?)`,
		created.ID, created.UserID, prefsJSON, dnaJSON, created.CompletionPercentage, created.LastUpdated.UnixNano(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("profile for user %s: %w", profile.UserID, storage.ErrConflict)
		}
		return nil, fmt.Errorf("failed to insert profile: %w", err)
	}

	logger.Debug("Cultural profile created", zap.String("profile_id", created.ID), zap.String("user_id", created.UserID))
	return &created, nil
}

const profileColumns = `id, user_id, preferences, cultural_dna, completion_percentage, last_updated`

func (c *Client) GetProfile(ctx context.Context, id string) (*models.CulturalProfile, error) {
	row := c.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM cultural_profiles WHERE id = ?`, id)
	profile, err := scanProfile(row)
	if err != nil {
		return nil, notFound(err, "profile "+id)
	}
	return profile, nil
}

func (c *Client) GetProfileByUser(ctx context.Context, userID string) (*models.CulturalProfile, error) {
	row := c.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM cultural_profiles WHERE user_id = ?`, userID)
	profile, err := scanProfile(row)
	if err != nil {
		return nil, notFound(err, "profile for user "+userID)
	}
	return profile, nil
}

func (c *Client) UpdateProfile(ctx context.Context, id string, update models.ProfileUpdate) (*models.CulturalProfile, error) {
	profile, err := c.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Preferences != nil {
		profile.Preferences = *update.Preferences
	}
	if update.CulturalDNA != nil {
		dna := *update.CulturalDNA
		profile.CulturalDNA = &dna
	}
	if update.CompletionPercentage != nil {
		profile.CompletionPercentage = *update.CompletionPercentage
	}
	profile.LastUpdated = c.now()

	prefsJSON, dnaJSON, err := encodeProfile(profile)
	if err != nil {
		return nil, err
	}

	_, err = c.db.ExecContext(ctx, `
		UPDATE cultural_profiles
		SET preferences = ?, cultural_dna = ?, completion_percentage = ?, last_updated = ?
		WHERE id = ?`,
		prefsJSON, dnaJSON, profile.CompletionPercentage, profile.LastUpdated.UnixNano(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return profile, nil
}

func (c *Client) CreateInsight(ctx context.Context, insight *models.CulturalInsight) (*models.CulturalInsight, error) {
	if err := c.profileExists(ctx, insight.ProfileID); err != nil {
		return nil, err
	}

	created := *insight
	created.ID = uuid.New().String()
	if created.Source == "" {
		created.Source = models.SourceAI
	}
	created.CreatedAt = c.now()

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO cultural_insights (id, profile_id, category, insight_text, match_percentage, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		created.ID, created.ProfileID, created.Category, created.InsightText,
		created.MatchPercentage, created.Source, created.CreatedAt.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert insight: %w", err)
	}
	return &created, nil
}

func (c *Client) ListInsights(ctx context.Context, profileID string) ([]models.CulturalInsight, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, profile_id, category, insight_text, match_percentage, source, created_at
		FROM cultural_insights
		WHERE profile_id = ?
		ORDER BY created_at DESC, rowid DESC`, profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to list insights: %w", err)
	}
	defer rows.Close()

	insights := make([]models.CulturalInsight, 0)
	for rows.Next() {
		var i models.CulturalInsight
		var source sql.NullString
		var match sql.NullInt64
		var createdAt int64
		if err := rows.Scan(&i.ID, &i.ProfileID, &i.Category, &i.InsightText, &match, &source, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan insight: %w", err)
		}
		i.MatchPercentage = int(match.Int64)
		i.Source = source.String
		i.CreatedAt = time.Unix(0, createdAt)
		insights = append(insights, i)
	}
	return insights, rows.Err()
}

func (c *Client) CreateRecommendation(ctx context.Context, rec *models.Recommendation) (*models.Recommendation, error) {
	if err := c.profileExists(ctx, rec.ProfileID); err != nil {
		return nil, err
	}

	created := *rec
	created.ID = uuid.New().String()
	created.CreatedAt = c.now()

	var metadata sql.NullString
	if created.Metadata != nil {
		data, err := json.Marshal(created.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal metadata: %w", err)
		}
		metadata = sql.NullString{String: string(data), Valid: true}
	}

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO recommendations (id, profile_id, title, description, category, match_percentage,
			location, image_url, external_id, metadata, is_bookmarked, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		created.ID, created.ProfileID, created.Title, created.Description, created.Category,
		created.MatchPercentage, created.Location, created.ImageURL, created.ExternalID,
		metadata, boolToInt(created.IsBookmarked), created.CreatedAt.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert recommendation: %w", err)
	}
	return &created, nil
}

const recommendationColumns = `id, profile_id, title, description, category, match_percentage,
	location, image_url, external_id, metadata, is_bookmarked, created_at`

func (c *Client) ListRecommendations(ctx context.Context, profileID string, limit int) ([]models.Recommendation, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := c.db.QueryContext(ctx, `
		SELECT `+recommendationColumns+`
		FROM recommendations
		WHERE profile_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, profileID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recommendations: %w", err)
	}
	defer rows.Close()

	recs := make([]models.Recommendation, 0)
	for rows.Next() {
		rec, err := scanRecommendation(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}

func (c *Client) UpdateRecommendation(ctx context.Context, id string, update models.RecommendationUpdate) (*models.Recommendation, error) {
	if update.IsBookmarked != nil {
		res, err := c.db.ExecContext(ctx, `UPDATE recommendations SET is_bookmarked = ? WHERE id = ?`,
			boolToInt(*update.IsBookmarked), id)
		if err != nil {
			return nil, fmt.Errorf("failed to update recommendation: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil, fmt.Errorf("recommendation %s: %w", id, storage.ErrNotFound)
		}
	}

	row := c.db.QueryRowContext(ctx, `SELECT `+recommendationColumns+` FROM recommendations WHERE id = ?`, id)
	rec, err := scanRecommendation(row)
	if err != nil {
		return nil, notFound(err, "recommendation "+id)
	}
	return rec, nil
}

func (c *Client) CreateResponse(ctx context.Context, resp *models.QuestionnaireResponse) (*models.QuestionnaireResponse, error) {
	if err := c.profileExists(ctx, resp.ProfileID); err != nil {
		return nil, err
	}

	created := *resp
	created.ID = uuid.New().String()
	if created.Response == nil {
		created.Response = []string{}
	}
	created.CreatedAt = c.now()

	data, err := json.Marshal(created.Response)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO questionnaire_responses (id, profile_id, question_id, response, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		created.ID, created.ProfileID, created.QuestionID, string(data), created.CreatedAt.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert questionnaire response: %w", err)
	}
	return &created, nil
}

func (c *Client) ListResponses(ctx context.Context, profileID string) ([]models.QuestionnaireResponse, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, profile_id, question_id, response, created_at
		FROM questionnaire_responses
		WHERE profile_id = ?
		ORDER BY created_at DESC, rowid DESC`, profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to list questionnaire responses: %w", err)
	}
	defer rows.Close()

	responses := make([]models.QuestionnaireResponse, 0)
	for rows.Next() {
		var r models.QuestionnaireResponse
		var data string
		var createdAt int64
		if err := rows.Scan(&r.ID, &r.ProfileID, &r.QuestionID, &data, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan questionnaire response: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &r.Response); err != nil {
			return nil, fmt.Errorf("failed to decode questionnaire response %s: %w", r.ID, err)
		}
		r.CreatedAt = time.Unix(0, createdAt)
		responses = append(responses, r)
	}
	return responses, rows.Err()
}

func (c *Client) profileExists(ctx context.Context, profileID string) error {
	var one int
	err := c.db.QueryRowContext(ctx, `SELECT 1 FROM cultural_profiles WHERE id = ?`, profileID).Scan(&one)
	if err != nil {
		return notFound(err, "profile "+profileID)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*models.User, error) {
	var user models.User
	var createdAt int64
	if err := row.Scan(&user.ID, &user.Email, &user.Name, &createdAt); err != nil {
		return nil, err
	}
	user.CreatedAt = time.Unix(0, createdAt)
	return &user, nil
}

func scanProfile(row scanner) (*models.CulturalProfile, error) {
	var p models.CulturalProfile
	var prefs string
	var dna sql.NullString
	var lastUpdated int64
	if err := row.Scan(&p.ID, &p.UserID, &prefs, &dna, &p.CompletionPercentage, &lastUpdated); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(prefs), &p.Preferences); err != nil {
		return nil, fmt.Errorf("failed to decode preferences for profile %s: %w", p.ID, err)
	}
	if dna.Valid && dna.String != "" {
		p.CulturalDNA = &models.CulturalDNA{}
		if err := json.Unmarshal([]byte(dna.String), p.CulturalDNA); err != nil {
			return nil, fmt.Errorf("failed to decode cultural DNA for profile %s: %w", p.ID, err)
		}
	}
	p.LastUpdated = time.Unix(0, lastUpdated)
	return &p, nil
}

func scanRecommendation(row scanner) (*models.Recommendation, error) {
	var r models.Recommendation
	var match sql.NullInt64
	var location, imageURL, externalID, metadata sql.NullString
	var bookmarked int
	var createdAt int64
	err := row.Scan(&r.ID, &r.ProfileID, &r.Title, &r.Description, &r.Category, &match,
		&location, &imageURL, &externalID, &metadata, &bookmarked, &createdAt)
	if err != nil {
		return nil, err
	}
	r.MatchPercentage = int(match.Int64)
	r.Location = location.String
	r.ImageURL = imageURL.String
	r.ExternalID = externalID.String
	r.IsBookmarked = bookmarked != 0
	r.CreatedAt = time.Unix(0, createdAt)
	if metadata.Valid && metadata.String != "" {
		r.Metadata = &models.Entity{}
		if err := json.Unmarshal([]byte(metadata.String), r.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata for recommendation %s: %w", r.ID, err)
		}
	}
	return &r, nil
}

func encodeProfile(p *models.CulturalProfile) (string, sql.NullString, error) {
	prefs, err := json.Marshal(p.Preferences)
	if err != nil {
		return "", sql.NullString{}, fmt.Errorf("failed to marshal preferences: %w", err)
	}
	var dna sql.NullString
	if p.CulturalDNA != nil {
		data, err := json.Marshal(p.CulturalDNA)
		if err != nil {
			return "", sql.NullString{}, fmt.Errorf("failed to marshal cultural DNA: %w", err)
		}
		dna = sql.NullString{String: string(data), Valid: true}
	}
	return string(prefs), dna, nil
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, storage.ErrNotFound)
	}
	return fmt.Errorf("failed to read %s: %w", what, err)
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
