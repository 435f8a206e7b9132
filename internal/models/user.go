package models

import "gorm.io/gorm"

// DefaultAvatarURL is used for users and businesses without a picture.
const DefaultAvatarURL = "https://static.vecteezy.com/system/resources/thumbnails/009/734/564/small_2x/default-avatar-profile-icon-of-social-media-user-vector.jpg"

// User represents a user in the system.
type User struct {
	gorm.Model
	FirstName      string  `gorm:"size:255;not null" json:"firstName"`
	LastName       string  `gorm:"size:255;not null" json:"lastName"`
	Username       string  `gorm:"size:20;unique;not null" json:"username"`
	Email          string  `gorm:"size:255;unique;not null" json:"email"`
	Bio            *string `json:"bio"`
	ProfilePicture string  `gorm:"size:512;not null" json:"profilePicture"`
	PasswordHash   string  `gorm:"size:255" json:"-"`
	IsAdmin        bool    `gorm:"not null;default:false" json:"isAdmin"`

	Businesses []Business `gorm:"foreignKey:OwnerID" json:"-"`
}

// BeforeCreate fills the default avatar.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ProfilePicture == "" {
		u.ProfilePicture = DefaultAvatarURL
	}
	return nil
}

// FullName joins first and last name.
func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}
