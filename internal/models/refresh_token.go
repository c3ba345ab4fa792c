package models

import (
	"time"
)

// RefreshToken is one issued refresh credential. Rotation never deletes a
// row: the old token is revoked and points at its successor via
// ReplacedByID, which keeps an audit trail of every session chain.
type RefreshToken struct {
	BaseModel
	UserID       string    `gorm:"size:36;index" json:"userId"`
	Token        string    `gorm:"type:text;not null" json:"-"`
	ExpiresAt    time.Time `json:"expiresAt"`
	IsRevoked    bool      `gorm:"default:false" json:"isRevoked"`
	ReplacedByID string    `gorm:"size:36" json:"-"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

// Active reports whether the token can still mint access tokens at the
// given instant.
func (t *RefreshToken) Active(now time.Time) bool {
	return !t.IsRevoked && now.Before(t.ExpiresAt)
}

// Revoke marks the token unusable. replacedByID links to the successor
// token when the revocation is part of a rotation; it is empty on logout.
func (t *RefreshToken) Revoke(now time.Time, replacedByID string) {
	t.IsRevoked = true
	t.ExpiresAt = now
	t.ReplacedByID = replacedByID
}
