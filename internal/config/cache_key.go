package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// UserSessionKey returns the cache key holding the JTI of a user's active login.
func (r *CacheKeyStruct) UserSessionKey(userID int) string {
	return fmt.Sprintf("login:%d", userID)
}

// QuizAnswersKey returns the key of the mirrored answer map of a user's quiz session.
func (r *CacheKeyStruct) QuizAnswersKey(userID int) string {
	return fmt.Sprintf("user:%d:quiz:answers", userID)
}

// QuizStartKey returns the key of the mirrored start time of a user's quiz session.
func (r *CacheKeyStruct) QuizStartKey(userID int) string {
	return fmt.Sprintf("user:%d:quiz:session_start", userID)
}

// QuizAutosaveKey returns the hash of auto-saved option IDs keyed by question ID.
func (r *CacheKeyStruct) QuizAutosaveKey(userID int) string {
	return fmt.Sprintf("user:%d:quiz:autosave", userID)
}

// QuizStartedAtKey holds the unix time of a user's first recorded start.
func (r *CacheKeyStruct) QuizStartedAtKey(userID int) string {
	return fmt.Sprintf("user:%d:quiz:started_at", userID)
}

// QuestionBankKey returns the key of the cached question bank payload.
func (r *CacheKeyStruct) QuestionBankKey() string {
	return "quiz:bank"
}

// AnswerKeyKey returns the hash of correct option IDs keyed by question ID.
func (r *CacheKeyStruct) AnswerKeyKey() string {
	return "quiz:answer_key"
}

var CacheKey = NewCacheKeyStruct()
