package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/stemsi/quizroom-backend/internal/model"
	"github.com/stemsi/quizroom-backend/internal/repository"
)

// ErrInvalidSetting is returned for unknown keys or malformed values.
var ErrInvalidSetting = errors.New("invalid setting")

type SettingService struct {
	settingRepo *repository.SettingRepository
	log         zerolog.Logger
}

func NewSettingService(settingRepo *repository.SettingRepository, log zerolog.Logger) *SettingService {
	return &SettingService{
		settingRepo: settingRepo,
		log:         log.With().Str("component", "setting_service").Logger(),
	}
}

func (s *SettingService) GetAll(ctx context.Context) (map[string]string, error) {
	settingsList, err := s.settingRepo.GetAll(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to get all settings")
		return nil, err
	}

	settingsMap := make(map[string]string, len(settingsList))
	for _, setting := range settingsList {
		settingsMap[setting.Key] = setting.Value
	}
	return settingsMap, nil
}

// Update validates every pair before writing any of them.
func (s *SettingService) Update(ctx context.Context, settings map[string]string) error {
	for key, value := range settings {
		if err := validateSetting(key, value); err != nil {
			return err
		}
	}
	if err := s.settingRepo.UpsertMany(ctx, settings); err != nil {
		s.log.Error().Err(err).Msg("failed to update settings")
		return err
	}
	s.log.Info().Int("count", len(settings)).Msg("Settings updated")
	return nil
}

// QuizSettings returns the typed quiz settings. Missing or malformed values
// fall back to a closed quiz and the given default time limit.
func (s *SettingService) QuizSettings(ctx context.Context, defaultMinutes int) (model.QuizSettings, error) {
	all, err := s.GetAll(ctx)
	if err != nil {
		return model.QuizSettings{}, err
	}
	return parseQuizSettings(all, defaultMinutes), nil
}

// IsLive reports whether students may currently take the quiz.
func (s *SettingService) IsLive(ctx context.Context) (bool, error) {
	setting, err := s.settingRepo.GetByKey(ctx, model.SettingQuizLive)
	if err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, err
	}
	live, _ := strconv.ParseBool(setting.Value)
	return live, nil
}

func parseQuizSettings(all map[string]string, defaultMinutes int) model.QuizSettings {
	qs := model.QuizSettings{TimeLimitMinutes: defaultMinutes}
	qs.IsLive, _ = strconv.ParseBool(all[model.SettingQuizLive])
	if n, err := strconv.Atoi(all[model.SettingTimeLimitMinutes]); err == nil && n > 0 {
		qs.TimeLimitMinutes = n
	}
	return qs
}

func validateSetting(key, value string) error {
	switch key {
	case model.SettingQuizLive:
		if _, err := strconv.ParseBool(value); err != nil {
			return fmt.Errorf("%w: %s must be true or false", ErrInvalidSetting, key)
		}
	case model.SettingTimeLimitMinutes:
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 || n > 600 {
			return fmt.Errorf("%w: %s must be between 1 and 600", ErrInvalidSetting, key)
		}
	default:
		return fmt.Errorf("%w: unknown key %q", ErrInvalidSetting, key)
	}
	return nil
}
