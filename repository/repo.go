package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"session-gateway/entities"
)

// ProfileRepository caches user display data keyed by principal. The cache is
// best-effort; a miss is not an error condition for callers.
type ProfileRepository interface {
	GetProfile(ctx context.Context, principal string) (*entities.UserProfile, error)
	UpsertProfile(ctx context.Context, profile *entities.UserProfile) error
	GetDB() *gorm.DB
}

type repo struct {
	db *gorm.DB
}

func NewProfileRepo(db *sql.DB) ProfileRepository {
	gormDB, _ := gorm.Open(postgres.New(postgres.Config{
		Conn: db}),
		&gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		},
	)
	return &repo{
		db: gormDB,
	}
}

func (r *repo) GetDB() *gorm.DB {
	return r.db
}

func (r *repo) GetProfile(ctx context.Context, principal string) (*entities.UserProfile, error) {
	profile := &entities.UserProfile{}
	err := r.GetDB().WithContext(ctx).First(profile, "principal = ?", principal).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return profile, nil
}

func (r *repo) UpsertProfile(ctx context.Context, profile *entities.UserProfile) error {
	profile.UpdatedAt = time.Now()
	return r.GetDB().WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "principal"}},
		UpdateAll: true,
	}).Create(profile).Error
}
