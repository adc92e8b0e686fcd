package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func Connect(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Warn),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	DB = db
	return db, nil
}

// submission_likes and rejected_submissions reference submissions without
// cascading, so their rows must go before the parent. anonymous_likes
// cascades. The like counter and the anonymous window live in triggers.
var migrations = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS submission_likes_pair_key
		ON submission_likes (submission_id, user_id)`,

	foreignKey("submission_likes", "submission_likes_submission_id_fkey", "submission_id", ""),
	foreignKey("rejected_submissions", "rejected_submissions_original_submission_id_fkey", "original_submission_id", ""),
	foreignKey("anonymous_likes", "anonymous_likes_submission_id_fkey", "submission_id", "ON DELETE CASCADE"),

	`CREATE OR REPLACE FUNCTION enforce_anonymous_like_window() RETURNS trigger AS $$
	BEGIN
		IF EXISTS (
			SELECT 1 FROM anonymous_likes
			WHERE submission_id = NEW.submission_id
			  AND ip_address = NEW.ip_address
			  AND created_at > now() - interval '24 hours'
		) THEN
			RAISE EXCEPTION '24 saat içinde tekrar beğeni yapamazsınız' USING ERRCODE = 'P0001';
		END IF;
		RETURN NEW;
	END;
	$$ LANGUAGE plpgsql`,

	`DROP TRIGGER IF EXISTS anonymous_like_window ON anonymous_likes`,
	`CREATE TRIGGER anonymous_like_window BEFORE INSERT ON anonymous_likes
		FOR EACH ROW EXECUTE FUNCTION enforce_anonymous_like_window()`,

	`CREATE OR REPLACE FUNCTION bump_submission_likes() RETURNS trigger AS $$
	BEGIN
		UPDATE submissions SET likes = COALESCE(likes, 0) + 1 WHERE id = NEW.submission_id;
		RETURN NEW;
	END;
	$$ LANGUAGE plpgsql`,

	`DROP TRIGGER IF EXISTS anonymous_like_counter ON anonymous_likes`,
	`CREATE TRIGGER anonymous_like_counter AFTER INSERT ON anonymous_likes
		FOR EACH ROW EXECUTE FUNCTION bump_submission_likes()`,

	`CREATE OR REPLACE FUNCTION drop_submission_likes() RETURNS trigger AS $$
	BEGIN
		UPDATE submissions SET likes = GREATEST(COALESCE(likes, 0) - 1, 0) WHERE id = OLD.submission_id;
		RETURN OLD;
	END;
	$$ LANGUAGE plpgsql`,

	`DROP TRIGGER IF EXISTS submission_like_counter ON submission_likes`,
	`CREATE TRIGGER submission_like_counter AFTER INSERT ON submission_likes
		FOR EACH ROW EXECUTE FUNCTION bump_submission_likes()`,

	`DROP TRIGGER IF EXISTS submission_unlike_counter ON submission_likes`,
	`CREATE TRIGGER submission_unlike_counter AFTER DELETE ON submission_likes
		FOR EACH ROW EXECUTE FUNCTION drop_submission_likes()`,

	`ALTER TABLE anonymous_likes ALTER COLUMN created_at SET DEFAULT now()`,
}

func foreignKey(table, name, column, onDelete string) string {
	return fmt.Sprintf(`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = '%s') THEN
			ALTER TABLE %s ADD CONSTRAINT %s
				FOREIGN KEY (%s) REFERENCES submissions (id) %s;
		END IF;
	END;
	$$`, name, table, name, column, onDelete)
}

// Migrate creates the tables for models and installs the triggers. It is
// idempotent.
func Migrate(db *gorm.DB, models ...interface{}) error {
	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("migration: %w", err)
	}
	for _, stmt := range migrations {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration: %w", err)
		}
	}
	return nil
}
