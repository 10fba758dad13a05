package database

import (
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/civicworks/shiftsync/pkg/models"
)

// APIKey is a key for the query surface, signed with the HMAC master secret.
type APIKey struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Key        string     `gorm:"unique;not null" json:"-"`
	Name       string     `gorm:"not null" json:"name"`
	KeyPreview string     `json:"key_preview"`
	RateLimit  int        `gorm:"default:10000" json:"rate_limit"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsed   *time.Time `json:"last_used"`
}

// APIUsage is a per-key, per-day usage counter.
type APIUsage struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	KeyID        uint   `gorm:"uniqueIndex:idx_key_date;not null" json:"key_id"`
	Date         string `gorm:"uniqueIndex:idx_key_date;not null" json:"date"`
	RequestCount int    `gorm:"default:0" json:"request_count"`
	ShiftsServed int    `gorm:"default:0" json:"shifts_served"`
}

// MasterUser is an admin account for key management.
type MasterUser struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"unique;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Open connects to Postgres when a DSN is given, otherwise to a local SQLite
// file, and migrates the schema. The source collections (needs, responses,
// hours) and the derived shift status tables all live in the same database.
func Open(dsn, sqlitePath string) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	if dsn != "" {
		db, err = gorm.Open(postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		}), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
	} else {
		if sqlitePath == "" {
			sqlitePath = "shiftsync.db"
		}
		db, err = gorm.Open(sqlite.Open(sqlitePath), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
	}
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Info().Bool("postgres", dsn != "").Msg("database ready")
	return db, nil
}

// Migrate creates or updates every table the service uses.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Need{},
		&models.Response{},
		&models.Hour{},
		&models.ShiftStatus{},
		&models.ShiftUserIndex{},
		&models.SyncMetadata{},
		&APIKey{},
		&APIUsage{},
		&MasterUser{},
	)
}
