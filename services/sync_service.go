package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"backend/models"
	"backend/querystore"
	"backend/utils"
)

// PrimarySource reads the records to denormalize from the primary database.
// The sync service never writes back to it.
type PrimarySource interface {
	Users(ctx context.Context) ([]models.User, error)
	Profiles(ctx context.Context) ([]models.HealthProfile, error)
	FoodLogs(ctx context.Context) ([]models.FoodLog, error)
	Recommendations(ctx context.Context) ([]models.Recommendation, error)
}

// GormPrimarySource reads from the main application database.
type GormPrimarySource struct {
	db *gorm.DB
}

func NewGormPrimarySource(db *gorm.DB) *GormPrimarySource {
	return &GormPrimarySource{db: db}
}

func (p *GormPrimarySource) Users(ctx context.Context) ([]models.User, error) {
	var out []models.User
	err := p.db.WithContext(ctx).Find(&out).Error
	return out, err
}

// Profiles returns only the newest snapshot per user; the history stays in
// the primary database.
func (p *GormPrimarySource) Profiles(ctx context.Context) ([]models.HealthProfile, error) {
	var out []models.HealthProfile
	err := p.db.WithContext(ctx).
		Raw("SELECT DISTINCT ON (user_email) * FROM health_profiles ORDER BY user_email, updated_at DESC").
		Scan(&out).Error
	return out, err
}

func (p *GormPrimarySource) FoodLogs(ctx context.Context) ([]models.FoodLog, error) {
	var out []models.FoodLog
	err := p.db.WithContext(ctx).Find(&out).Error
	return out, err
}

func (p *GormPrimarySource) Recommendations(ctx context.Context) ([]models.Recommendation, error) {
	var out []models.Recommendation
	err := p.db.WithContext(ctx).Find(&out).Error
	return out, err
}

type EntitySyncResult struct {
	Synced int      `json:"synced"`
	Failed int      `json:"failed"`
	Errors []string `json:"errors,omitempty"`
}

type SyncReport struct {
	BatchID  string                      `json:"batch_id"`
	Duration string                      `json:"duration"`
	Entities map[string]EntitySyncResult `json:"entities"`
}

// SyncService copies the primary records into the query store with
// replace-by-natural-key upserts. One record failing never aborts a batch;
// failures are counted per entity with no automatic retry.
type SyncService struct {
	source PrimarySource
	store  *querystore.Store
}

func NewSyncService(source PrimarySource, store *querystore.Store) *SyncService {
	return &SyncService{source: source, store: store}
}

// SyncAll runs one full pass over every entity type. Re-running against
// unchanged source data leaves the query store contents identical.
func (s *SyncService) SyncAll(ctx context.Context) (*SyncReport, error) {
	batch := uuid.NewString()
	start := time.Now()

	report := &SyncReport{
		BatchID: batch,
		Entities: map[string]EntitySyncResult{
			"users":           s.syncUsers(ctx),
			"profiles":        s.syncProfiles(ctx),
			"food_logs":       s.syncFoodLogs(ctx),
			"recommendations": s.syncRecommendations(ctx),
		},
	}
	report.Duration = time.Since(start).Round(time.Millisecond).String()
	log.Printf("sync %s finished in %s", batch, report.Duration)
	return report, nil
}

func (s *SyncService) syncUsers(ctx context.Context) EntitySyncResult {
	var res EntitySyncResult
	users, err := s.source.Users(ctx)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("read users: %v", err))
		return res
	}
	for _, u := range users {
		err := s.store.Exec(ctx,
			`INSERT INTO users (email, full_name, password_hash, created_at)
			 VALUES (?, ?, ?, ?)
			 ON CONFLICT(email) DO UPDATE SET
			   full_name = excluded.full_name,
			   password_hash = excluded.password_hash,
			   created_at = excluded.created_at`,
			u.Email, u.FullName, u.Password, u.CreatedAt.UTC().Format(time.RFC3339))
		if err != nil {
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("user %s: %v", u.Email, err))
			continue
		}
		res.Synced++
	}
	return res
}

func (s *SyncService) syncProfiles(ctx context.Context) EntitySyncResult {
	var res EntitySyncResult
	profiles, err := s.source.Profiles(ctx)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("read profiles: %v", err))
		return res
	}
	for _, p := range profiles {
		age := p.Age
		if age == 0 && !p.Birthday.IsZero() {
			age = utils.CalculateAge(p.Birthday)
		}
		err := s.store.Exec(ctx,
			`INSERT INTO user_profiles (user_id, age, weight, height, activity_level, dietary_preference, goals, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(user_id) DO UPDATE SET
			   age = excluded.age,
			   weight = excluded.weight,
			   height = excluded.height,
			   activity_level = excluded.activity_level,
			   dietary_preference = excluded.dietary_preference,
			   goals = excluded.goals,
			   updated_at = excluded.updated_at`,
			p.UserEmail, age, p.Weight, p.Height, p.ActivityLevel, p.DietaryPreference,
			p.Goals, p.UpdatedAt.UTC().Format(time.RFC3339))
		if err != nil {
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("profile %s: %v", p.UserEmail, err))
			continue
		}
		res.Synced++
	}
	return res
}

func (s *SyncService) syncFoodLogs(ctx context.Context) EntitySyncResult {
	var res EntitySyncResult
	logs, err := s.source.FoodLogs(ctx)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("read food logs: %v", err))
		return res
	}
	for _, l := range logs {
		err := s.store.Exec(ctx,
			`INSERT INTO food_logs (user_id, food_name, meal_type, log_date, quantity, calories, protein, carbs, fat, recommended, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(user_id, food_name, meal_type, log_date) DO UPDATE SET
			   quantity = excluded.quantity,
			   calories = excluded.calories,
			   protein = excluded.protein,
			   carbs = excluded.carbs,
			   fat = excluded.fat,
			   recommended = excluded.recommended,
			   created_at = excluded.created_at`,
			l.UserEmail, l.FoodName, l.MealType, l.LogDate, l.Quantity,
			l.Calories, l.Protein, l.Carbs, l.Fat, boolToInt(l.Recommended),
			l.CreatedAt.UTC().Format(time.RFC3339))
		if err != nil {
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("food log %s/%s/%s: %v", l.UserEmail, l.FoodName, l.LogDate, err))
			continue
		}
		res.Synced++
	}
	return res
}

// syncRecommendations replaces each user's recommendation set wholesale: the
// natural key is the identity, so stale suggestions never linger.
func (s *SyncService) syncRecommendations(ctx context.Context) EntitySyncResult {
	var res EntitySyncResult
	recs, err := s.source.Recommendations(ctx)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("read recommendations: %v", err))
		return res
	}

	byUser := map[string][]models.Recommendation{}
	for _, r := range recs {
		byUser[r.UserEmail] = append(byUser[r.UserEmail], r)
	}
	emails := make([]string, 0, len(byUser))
	for email := range byUser {
		emails = append(emails, email)
	}
	sort.Strings(emails)

	for _, email := range emails {
		if err := s.store.Exec(ctx, "DELETE FROM recommendations WHERE user_id = ?", email); err != nil {
			res.Failed += len(byUser[email])
			res.Errors = append(res.Errors, fmt.Sprintf("clear recommendations %s: %v", email, err))
			continue
		}
		for _, r := range byUser[email] {
			// taken_at is set iff the recommendation was accepted.
			var takenAt any
			if r.Accepted && r.TakenAt != nil {
				takenAt = r.TakenAt.UTC().Format(time.RFC3339)
			}
			err := s.store.Exec(ctx,
				`INSERT INTO recommendations (user_id, meal_type, food_name, quantity, calories, protein, carbs, fat, accepted, taken_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				 ON CONFLICT(user_id, meal_type, food_name) DO UPDATE SET
				   quantity = excluded.quantity,
				   calories = excluded.calories,
				   protein = excluded.protein,
				   carbs = excluded.carbs,
				   fat = excluded.fat,
				   accepted = excluded.accepted,
				   taken_at = excluded.taken_at`,
				r.UserEmail, r.MealType, r.FoodName, r.Quantity, r.Calories,
				r.Protein, r.Carbs, r.Fat, boolToInt(r.Accepted), takenAt)
			if err != nil {
				res.Failed++
				res.Errors = append(res.Errors, fmt.Sprintf("recommendation %s/%s: %v", r.UserEmail, r.FoodName, err))
				continue
			}
			res.Synced++
		}
	}
	return res
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
