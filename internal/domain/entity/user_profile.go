package entity

// UserProfile holds the editable profile attached one-to-one to a User.
// It is created lazily: login and profile reads create a default record
// (name = email local part) when none exists yet.
type UserProfile struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	UserID         uint   `gorm:"not null;uniqueIndex" json:"user"`
	Name           string `gorm:"size:500" json:"name"`
	PhoneNumber    string `gorm:"size:20" json:"phone_number"`
	ProfilePicture string `gorm:"size:255" json:"profile_picture"`
}

func (UserProfile) TableName() string {
	return "user_profiles"
}
