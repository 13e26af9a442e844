package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// TestPayloadKey returns the cache key for an approved test's payload.
func (r *CacheKeyStruct) TestPayloadKey(testID string) string {
	return fmt.Sprintf("test:%s:payload", testID)
}

// EvaluationEventsChannel returns the Redis PubSub channel carrying
// evaluation workflow events for the admin live stream.
func (r *CacheKeyStruct) EvaluationEventsChannel() string {
	return "evaluations:events"
}

var CacheKey = NewCacheKeyStruct()
