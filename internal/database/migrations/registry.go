package migrations

import (
	"gorm.io/gorm"

	"github.com/mediabunnygo/mediabunny/internal/repository"
)

// AllMigrations returns the ordered set of migrations applied on startup.
func AllMigrations() []Migration {
	return []Migration{
		{
			Version:     "0001_create_conversion_jobs",
			Description: "create the conversion_jobs table",
			Up: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&repository.Job{})
			},
			Down: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.Job{})
			},
		},
	}
}
