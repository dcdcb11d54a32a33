package db

import (
	"fmt"

	"github.com/hitoq/hitoq/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AllModels returns every GORM model owned by the messaging store, in
// dependency order.
func AllModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Block{},
		&models.Message{},
		&models.Like{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// DropAll drops every table in reverse dependency order.
func DropAll(db *gorm.DB) error {
	all := AllModels()
	for i := len(all) - 1; i >= 0; i-- {
		if err := db.Migrator().DropTable(all[i]); err != nil {
			return fmt.Errorf("db: drop %T: %w", all[i], err)
		}
	}
	return nil
}

// SeedUsers upserts user directory rows. The notification level of an
// existing user is left alone; new users default to "all".
func SeedUsers(db *gorm.DB, users []models.User) error {
	for _, u := range users {
		if u.NotificationLevel == "" {
			u.NotificationLevel = models.NotificationAll
		}
		if u.DisplayName == "" {
			u.DisplayName = u.UserName
		}
		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"user_name", "display_name", "icon_url"}),
		}).Create(&u)
		if result.Error != nil {
			return fmt.Errorf("db: seed user %q: %w", u.ID, result.Error)
		}
	}
	return nil
}
