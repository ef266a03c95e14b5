package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// AttemptAnswersKey returns the cache key holding a user's live answers for
// one module attempt (question_id → answer hash).
func (r *CacheKeyStruct) AttemptAnswersKey(userID int, testID, module string) string {
	return fmt.Sprintf("user:%d:test:%s:%s:answers", userID, testID, module)
}

// AttemptStartKey returns the cache key for an attempt's start timestamp.
func (r *CacheKeyStruct) AttemptStartKey(userID int, testID, module string) string {
	return fmt.Sprintf("user:%d:test:%s:%s:started_at", userID, testID, module)
}

// AttemptPartKey returns the cache key for an attempt's displayed part index,
// so a page reload restores the user to the part they were on.
func (r *CacheKeyStruct) AttemptPartKey(userID int, testID, module string) string {
	return fmt.Sprintf("user:%d:test:%s:%s:part", userID, testID, module)
}

// CompletionKey returns the cache key mapping a (user, module, test) triple to
// the session id of a completed attempt, used by the completion check.
func (r *CacheKeyStruct) CompletionKey(userID int, module, testID string) string {
	return fmt.Sprintf("user:%d:completion:%s:%s", userID, module, testID)
}

// TestDocumentKey returns the cache key for a normalized test document.
func (r *CacheKeyStruct) TestDocumentKey(testID string) string {
	return fmt.Sprintf("test:%s:document", testID)
}

// UserSessionKey returns the cache key for a user's login session (JTI).
func (r *CacheKeyStruct) UserSessionKey(userID int) string {
	return fmt.Sprintf("login:%d", userID)
}

var CacheKey = NewCacheKeyStruct()
