package migrations

import (
	"github.com/amyusif/madpc-notify/internal/directory"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createPersonnelTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_personnel",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&directory.PersonnelModel{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_personnel_badge_no ON personnel (badge_no)`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&directory.PersonnelModel{})
		},
	}
}
