package user

import "time"

// User mirrors the profile row kept next to Supabase auth.users.
type User struct {
	ID        string `gorm:"primaryKey;type:uuid"` // same id as auth.users
	CreatedAt time.Time
	Email     string `gorm:"index"`
	IsAdmin   bool   `gorm:"default:false"`
}

func (User) TableName() string {
	return "users"
}
