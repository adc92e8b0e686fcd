package user

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/muhtarbag/fenomen-pet/internal/database"
)

// IsAdmin reports whether userID may moderate submissions. An unknown user
// is not an admin.
func IsAdmin(ctx context.Context, userID string) (bool, error) {
	var u User
	err := database.DB.WithContext(ctx).
		Select("id", "is_admin").
		Where("id = ?", userID).
		First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return u.IsAdmin, nil
}
