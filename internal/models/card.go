package models

import "time"

// Link types stored on claimed cards.
const (
	// LinkTypeYouTube marks a hosted video.
	LinkTypeYouTube = "youtube"
	// LinkTypeAudio marks a direct audio URL.
	LinkTypeAudio = "audio"
)

// Card is one printed token and its claim state.
//
// ClaimedAt is nil exactly when LinkType is nil.
type Card struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	OrderID string `gorm:"type:varchar(36);not null;index"` // Owning order.
	Order   *Order `gorm:"foreignKey:OrderID"`              // Owning order record.

	Token      string `gorm:"type:varchar(16);not null;uniqueIndex"` // Public uppercase token.
	SecretHash string `gorm:"type:text;not null" json:"-"`           // bcrypt hash of the setup code.

	FailedAttempts int        `gorm:"not null;default:0"` // Consecutive failed setup code checks.
	LockedUntil    *time.Time // Lockout end, if any.

	LinkType  *string `gorm:"type:varchar(16)"`                   // youtube or audio; nil while unclaimed.
	YouTubeID *string `gorm:"column:youtube_id;type:varchar(16)"` // Video id for youtube links.
	AudioURL  *string `gorm:"type:text"`                          // Playable URL for audio links.

	TemplateID int     `gorm:"not null"`  // Waveform template 1..10.
	Message    *string `gorm:"type:text"` // Optional annotation from the buyer.

	ClaimedAt *time.Time // First successful claim.
	CreatedAt time.Time  `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time  `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// IsClaimed reports whether content has been bound to the card.
func (c *Card) IsClaimed() bool {
	return c != nil && c.ClaimedAt != nil
}

// LockActive reports whether the lockout is still running at now.
func (c *Card) LockActive(now time.Time) bool {
	return c != nil && c.LockedUntil != nil && c.LockedUntil.After(now)
}
