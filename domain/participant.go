package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Participant is one row of a tenant partition. The partition (table) is chosen at
// query time, so the model carries no TableName.
type Participant struct {
	ID          uint           `gorm:"primaryKey" json:"-"`
	Name        string         `gorm:"column:name;not null" json:"name"`
	Email       string         `gorm:"column:email" json:"email"`
	Phone       string         `gorm:"column:phone;not null" json:"phone"`
	Token       string         `gorm:"column:token;not null" json:"token"`
	GamePlayed  bool           `gorm:"column:game_played;default:false" json:"game_played"`
	PlayedOn    *time.Time     `gorm:"column:played_on" json:"played_on"`
	PlayHistory datatypes.JSON `gorm:"column:play_history;type:jsonb" json:"play_history,omitempty"`
	Rating      *int           `gorm:"column:rating" json:"rating"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

type Identity struct {
	Name  string `validate:"required"`
	Email string `validate:"omitempty,email"`
	Phone string `validate:"required"`
}

type RegistrationStatus string

const (
	StatusRegistered        RegistrationStatus = "registered"
	StatusAlreadyRegistered RegistrationStatus = "already_registered"
)

// Reward is the tenant reward configuration echoed back to callers.
type Reward struct {
	Offers         []string `json:"offers"`
	Partition      string   `json:"tableName"`
	WinProbability float64  `json:"winProbability"`
}

type RegistrationResult struct {
	Status       RegistrationStatus
	Token        string
	LastPlayedAt *time.Time
	Reward       *Reward
}

type PlayResult struct {
	Token    string
	PlayedAt time.Time
}

type RatingResult struct {
	Token  string
	Rating int
}
