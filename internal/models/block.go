package models

import "time"

// Block is a one-directional suppression: BlockerUserID no longer sees
// content from BlockedUserID, and BlockedUserID cannot message them.
type Block struct {
	BlockerUserID string `gorm:"primaryKey;size:64"`
	BlockedUserID string `gorm:"primaryKey;size:64;index"`
	CreatedAt     time.Time

	Blocker User `gorm:"foreignKey:BlockerUserID;constraint:OnDelete:CASCADE"`
	Blocked User `gorm:"foreignKey:BlockedUserID;constraint:OnDelete:CASCADE"`
}
