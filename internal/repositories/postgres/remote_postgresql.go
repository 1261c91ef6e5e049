package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/prepstack/attempt-engine/internal/models"
	"github.com/prepstack/attempt-engine/internal/repositories"
)

// RemotePostgreSQL implements the remote sync backend on gorm/Postgres. Every
// write is an upsert keyed on the row's natural identity, so the upload retry
// queue can replay records safely.
type RemotePostgreSQL struct {
	db *gorm.DB
}

func NewRemotePostgreSQL(db *gorm.DB) repositories.RemoteSync {
	return &RemotePostgreSQL{db: db}
}

// AutoMigrate creates the backing tables. Intended for development and tests;
// production schemas are managed externally.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&attemptRow{}, &progressRow{}, &bookmarkRow{})
}

// ===== ROW TYPES =====

type attemptRow struct {
	ID            string         `gorm:"primaryKey;size:64"`
	UserID        string         `gorm:"not null;size:64;index"`
	TestID        string         `gorm:"not null;size:128;index"`
	TestTitle     string         `gorm:"size:200"`
	Questions     datatypes.JSON `gorm:"type:jsonb"`
	CurrentIndex  int
	Answers       datatypes.JSON `gorm:"type:jsonb"`
	Marked        datatypes.JSON `gorm:"type:jsonb"`
	TimeSpent     datatypes.JSON `gorm:"type:jsonb"`
	StartTime     time.Time
	EndTime       time.Time `gorm:"index"`
	TimeRemaining int
	TotalTime     int
	Score         float64
	TotalMarks    int
	Status        string `gorm:"size:20;index"`
	UpdatedAt     time.Time
}

func (attemptRow) TableName() string { return "test_attempts" }

type progressRow struct {
	UserID        string         `gorm:"primaryKey;size:64"`
	TestID        string         `gorm:"primaryKey;size:128"`
	TestTitle     string         `gorm:"size:200"`
	Questions     datatypes.JSON `gorm:"type:jsonb"`
	CurrentIndex  int
	Answers       datatypes.JSON `gorm:"type:jsonb"`
	Marked        datatypes.JSON `gorm:"type:jsonb"`
	TimeSpent     datatypes.JSON `gorm:"type:jsonb"`
	StartTime     time.Time
	TimeRemaining int
	TotalTime     int
	UpdatedAt     time.Time
}

func (progressRow) TableName() string { return "progress_snapshots" }

type bookmarkRow struct {
	UserID     string         `gorm:"primaryKey;size:64"`
	QuestionID string         `gorm:"primaryKey;size:128"`
	Type       string         `gorm:"primaryKey;size:16"`
	ItemID     string         `gorm:"size:64"`
	TestID     string         `gorm:"size:128"`
	Question   datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (bookmarkRow) TableName() string { return "bookmarks" }

// ===== WRITES =====

func (r *RemotePostgreSQL) UpsertAttempt(ctx context.Context, userID string, attempt *models.TestAttempt) error {
	row, err := attemptToRow(userID, attempt)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(row).Error
}

func (r *RemotePostgreSQL) UpsertProgress(ctx context.Context, userID string, attempt *models.TestAttempt) error {
	questions, answers, marked, timeSpent, err := marshalAttemptPayload(attempt)
	if err != nil {
		return err
	}
	row := &progressRow{
		UserID:        userID,
		TestID:        attempt.TestID,
		TestTitle:     attempt.TestTitle,
		Questions:     questions,
		CurrentIndex:  attempt.CurrentIndex,
		Answers:       answers,
		Marked:        marked,
		TimeSpent:     timeSpent,
		StartTime:     attempt.StartTime,
		TimeRemaining: attempt.TimeRemaining,
		TotalTime:     attempt.TotalTime,
		UpdatedAt:     time.Now().UTC(),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "test_id"}},
			UpdateAll: true,
		}).
		Create(row).Error
}

func (r *RemotePostgreSQL) DeleteProgress(ctx context.Context, userID, testID string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND test_id = ?", userID, testID).
		Delete(&progressRow{}).Error
}

func (r *RemotePostgreSQL) UpsertBookmark(ctx context.Context, userID string, item *models.LibraryItem) error {
	question, err := json.Marshal(item.Question)
	if err != nil {
		return fmt.Errorf("failed to marshal question: %w", err)
	}
	row := &bookmarkRow{
		UserID:     userID,
		QuestionID: item.QuestionID,
		Type:       string(item.Type),
		ItemID:     item.ID,
		TestID:     item.TestID,
		Question:   question,
		CreatedAt:  item.CreatedAt,
		UpdatedAt:  item.UpdatedAt,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "question_id"}, {Name: "type"}},
			UpdateAll: true,
		}).
		Create(row).Error
}

// ===== READS =====

func (r *RemotePostgreSQL) FetchProgress(ctx context.Context, userID string) ([]*models.TestAttempt, error) {
	var rows []progressRow
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	attempts := make([]*models.TestAttempt, 0, len(rows))
	for i := range rows {
		attempt, err := progressFromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, attempt)
	}
	return attempts, nil
}

func (r *RemotePostgreSQL) FetchBookmarks(ctx context.Context, userID string) ([]*models.LibraryItem, error) {
	var rows []bookmarkRow
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	items := make([]*models.LibraryItem, 0, len(rows))
	for i := range rows {
		row := &rows[i]
		item := &models.LibraryItem{
			ID:         row.ItemID,
			UserID:     row.UserID,
			QuestionID: row.QuestionID,
			Type:       models.LibraryItemType(row.Type),
			TestID:     row.TestID,
			CreatedAt:  row.CreatedAt,
			UpdatedAt:  row.UpdatedAt,
		}
		if len(row.Question) > 0 {
			if err := json.Unmarshal(row.Question, &item.Question); err != nil {
				return nil, fmt.Errorf("failed to unmarshal bookmark question: %w", err)
			}
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *RemotePostgreSQL) FetchHistory(ctx context.Context, userID string, page int) ([]*models.TestAttempt, error) {
	if page < 0 {
		return nil, errors.New("page must be non-negative")
	}
	var rows []attemptRow
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, string(models.AttemptCompleted)).
		Order("end_time DESC").
		Limit(repositories.HistoryPageSize).
		Offset(page * repositories.HistoryPageSize).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	attempts := make([]*models.TestAttempt, 0, len(rows))
	for i := range rows {
		attempt, err := attemptFromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, attempt)
	}
	return attempts, nil
}

// ===== CONVERSION =====

func marshalAttemptPayload(attempt *models.TestAttempt) (questions, answers, marked, timeSpent datatypes.JSON, err error) {
	if questions, err = json.Marshal(attempt.Questions); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal questions: %w", err)
	}
	if answers, err = json.Marshal(attempt.Answers); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal answers: %w", err)
	}
	if marked, err = json.Marshal(attempt.MarkedForReview); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal marks: %w", err)
	}
	if timeSpent, err = json.Marshal(attempt.TimeSpent); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal time spent: %w", err)
	}
	return questions, answers, marked, timeSpent, nil
}

func attemptToRow(userID string, attempt *models.TestAttempt) (*attemptRow, error) {
	questions, answers, marked, timeSpent, err := marshalAttemptPayload(attempt)
	if err != nil {
		return nil, err
	}
	return &attemptRow{
		ID:            attempt.ID,
		UserID:        userID,
		TestID:        attempt.TestID,
		TestTitle:     attempt.TestTitle,
		Questions:     questions,
		CurrentIndex:  attempt.CurrentIndex,
		Answers:       answers,
		Marked:        marked,
		TimeSpent:     timeSpent,
		StartTime:     attempt.StartTime,
		EndTime:       attempt.EndTime,
		TimeRemaining: attempt.TimeRemaining,
		TotalTime:     attempt.TotalTime,
		Score:         attempt.Score,
		TotalMarks:    attempt.TotalMarks,
		Status:        string(attempt.Status),
		UpdatedAt:     time.Now().UTC(),
	}, nil
}

func attemptFromRow(row *attemptRow) (*models.TestAttempt, error) {
	attempt := &models.TestAttempt{
		ID:            row.ID,
		UserID:        row.UserID,
		TestID:        row.TestID,
		TestTitle:     row.TestTitle,
		CurrentIndex:  row.CurrentIndex,
		StartTime:     row.StartTime,
		EndTime:       row.EndTime,
		TimeRemaining: row.TimeRemaining,
		TotalTime:     row.TotalTime,
		Score:         row.Score,
		TotalMarks:    row.TotalMarks,
		Status:        models.AttemptStatus(row.Status),
	}
	if err := unmarshalAttemptPayload(row.Questions, row.Answers, row.Marked, row.TimeSpent, attempt); err != nil {
		return nil, err
	}
	return attempt, nil
}

func progressFromRow(row *progressRow) (*models.TestAttempt, error) {
	attempt := &models.TestAttempt{
		ID:            models.InProgressAttemptID(row.TestID),
		UserID:        row.UserID,
		TestID:        row.TestID,
		TestTitle:     row.TestTitle,
		CurrentIndex:  row.CurrentIndex,
		StartTime:     row.StartTime,
		TimeRemaining: row.TimeRemaining,
		TotalTime:     row.TotalTime,
		Status:        models.AttemptInProgress,
	}
	if err := unmarshalAttemptPayload(row.Questions, row.Answers, row.Marked, row.TimeSpent, attempt); err != nil {
		return nil, err
	}
	return attempt, nil
}

func unmarshalAttemptPayload(questions, answers, marked, timeSpent datatypes.JSON, attempt *models.TestAttempt) error {
	if len(questions) > 0 {
		if err := json.Unmarshal(questions, &attempt.Questions); err != nil {
			return fmt.Errorf("failed to unmarshal questions: %w", err)
		}
	}
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &attempt.Answers); err != nil {
			return fmt.Errorf("failed to unmarshal answers: %w", err)
		}
	}
	if len(marked) > 0 {
		if err := json.Unmarshal(marked, &attempt.MarkedForReview); err != nil {
			return fmt.Errorf("failed to unmarshal marks: %w", err)
		}
	}
	if len(timeSpent) > 0 {
		if err := json.Unmarshal(timeSpent, &attempt.TimeSpent); err != nil {
			return fmt.Errorf("failed to unmarshal time spent: %w", err)
		}
	}
	return nil
}
