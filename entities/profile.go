package entities

import "time"

// UserProfile is a best-effort cache of display data keyed by the opaque
// principal string. It is not authoritative; the remote service owns identity.
type UserProfile struct {
	Principal   string    `json:"principal" gorm:"type:varchar(100);primary_key"`
	DisplayName string    `json:"display_name" gorm:"type:varchar(255)"`
	AvatarURL   string    `json:"avatar_url" gorm:"type:varchar(500)"`
	Bio         string    `json:"bio" gorm:"type:text"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
}

func (UserProfile) TableName() string {
	return "user_profiles"
}
