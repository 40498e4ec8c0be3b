package db

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"evidence-registry/internal/core"
)

type PostgresDB struct {
	db *gorm.DB
}

// NewPostgresDB connects and migrates the anchored_evidence table.
func NewPostgresDB(host, user, password, dbName string, port int, sslMode string) (*PostgresDB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		host, user, password, dbName, port, sslMode)

	database, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := database.AutoMigrate(&core.Anchored{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &PostgresDB{db: database}, nil
}

func (p *PostgresDB) Save(ctx context.Context, doc *core.Anchored) error {
	return p.db.WithContext(ctx).Create(doc).Error
}

func (p *PostgresDB) Find(ctx context.Context, ref string) (*core.Anchored, error) {
	var doc core.Anchored
	err := p.db.WithContext(ctx).
		Where("file_hash = ? OR content_id = ? OR fingerprint = ? OR tx_id = ?", ref, ref, ref, ref).
		Order("created_at").
		First(&doc).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &doc, nil
}

func (p *PostgresDB) List(ctx context.Context) ([]core.Anchored, error) {
	var docs []core.Anchored
	if err := p.db.WithContext(ctx).Order("created_at").Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

func (p *PostgresDB) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.ErrNotFound
	}
	return err
}
