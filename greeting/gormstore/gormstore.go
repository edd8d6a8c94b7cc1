// Package gormstore keeps greeting templates in SQLite through gorm.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jinzhu/copier"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/ryanreadbooks/primon/greeting"
)

const busyTimeoutMs = 5000

type templateRow struct {
	ID        uint   `gorm:"primaryKey"`
	Scope     string `gorm:"size:128;not null;uniqueIndex:idx_scope_type"`
	Type      string `gorm:"size:16;not null;uniqueIndex:idx_scope_type"`
	Kind      string `gorm:"size:16;not null"`
	Content   string
	Media     []byte
	Mimetype  string `gorm:"size:64"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (templateRow) TableName() string { return "greeting_templates" }

type Store struct {
	db *gorm.DB
}

// Open opens the sqlite database at path and migrates the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create storage dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn(path)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open storage %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := db.AutoMigrate(&templateRow{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate storage: %w", err)
	}

	return &Store{db: db}, nil
}

func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_busy_timeout=%d&_journal_mode=WAL&_foreign_keys=on", path, sep, busyTimeoutMs)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Get(ctx context.Context, scope string, typ greeting.Type) (*greeting.Template, error) {
	var row templateRow
	err := s.db.WithContext(ctx).
		Where("scope = ? AND type = ?", scope, string(typ)).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, greeting.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get template: %w", err)
	}

	var tpl greeting.Template
	if err := copier.Copy(&tpl, &row); err != nil {
		return nil, fmt.Errorf("failed to copy template: %w", err)
	}
	return &tpl, nil
}

// Upsert is a single INSERT ... ON CONFLICT DO UPDATE on (scope, type).
func (s *Store) Upsert(ctx context.Context, tpl *greeting.Template) error {
	var row templateRow
	if err := copier.Copy(&row, tpl); err != nil {
		return fmt.Errorf("failed to copy template: %w", err)
	}
	row.ID = 0
	if row.Kind == "" {
		row.Kind = string(greeting.KindText)
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "scope"}, {Name: "type"}},
		DoUpdates: clause.AssignmentColumns([]string{"kind", "content", "media", "mimetype", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to upsert template: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, scope string, typ greeting.Type) error {
	err := s.db.WithContext(ctx).
		Where("scope = ? AND type = ?", scope, string(typ)).
		Delete(&templateRow{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	return nil
}
