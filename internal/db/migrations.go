package db

import (
	"fmt"

	"gorm.io/gorm"
)

// The presence tables belong to the check-in system. Statements only touch
// tables that already exist: an insertion sequence and read-path indexes.
var migrationStatements = []string{
	`DO $$
	BEGIN
		IF EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'presence_events') AND
		   NOT EXISTS (SELECT 1 FROM information_schema.columns WHERE table_name = 'presence_events' AND column_name = 'seq') THEN
			ALTER TABLE presence_events ADD COLUMN seq BIGSERIAL;
		END IF;
	END
	$$;`,
	`DO $$
	BEGIN
		IF EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'presence_events') THEN
			CREATE INDEX IF NOT EXISTS idx_presence_events_occurred ON presence_events (occurred_at, seq);
			CREATE INDEX IF NOT EXISTS idx_presence_events_subject ON presence_events (subject_id, occurred_at, seq);
		END IF;
	END
	$$;`,
	`DO $$
	BEGIN
		IF EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'subjects') THEN
			CREATE INDEX IF NOT EXISTS idx_subjects_role ON subjects (role);
		END IF;
	END
	$$;`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
