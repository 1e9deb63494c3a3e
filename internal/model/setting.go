package model

import "time"

// Setting keys understood by the quiz.
const (
	SettingQuizLive         = "quiz_live"
	SettingTimeLimitMinutes = "time_limit_minutes"
)

// AppSetting represents a key-value pair for global application configuration.
type AppSetting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UpdateSettingsRequest is the payload for bulk updating settings.
type UpdateSettingsRequest struct {
	Settings map[string]string `json:"settings" binding:"required"`
}

// QuizSettings is the typed view over the quiz related settings.
type QuizSettings struct {
	IsLive           bool `json:"is_live"`
	TimeLimitMinutes int  `json:"time_limit_minutes"`
}
