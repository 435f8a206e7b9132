package models

import "gorm.io/gorm"

// Business is a profile owned by a user that can publish calendar items and events.
type Business struct {
	gorm.Model
	Name       string  `gorm:"size:255;not null" json:"name"`
	Email      string  `gorm:"size:255;not null" json:"email"`
	Bio        string  `gorm:"type:text;not null" json:"bio"`
	Category   *string `gorm:"size:100" json:"category"`
	OwnerID    uint    `gorm:"not null;index" json:"ownerId"`
	PictureURL string  `gorm:"size:512;not null" json:"pictureUrl"`

	Owner User `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE;" json:"-"`
}

func (b *Business) BeforeCreate(_ *gorm.DB) error {
	if b.PictureURL == "" {
		b.PictureURL = DefaultAvatarURL
	}
	return nil
}

// Follow records that a user follows a business.
type Follow struct {
	BusinessID uint `gorm:"primaryKey" json:"businessId"`
	UserID     uint `gorm:"primaryKey" json:"userId"`

	Business Business `gorm:"foreignKey:BusinessID;constraint:OnDelete:CASCADE;" json:"business,omitempty"`
	User     User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE;" json:"-"`
}
