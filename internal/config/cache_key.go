package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// CandidateProgressKey returns the cache key holding a candidate's
// assessment progress snapshot.
func (r *CacheKeyStruct) CandidateProgressKey(email string) string {
	return fmt.Sprintf("candidate:%s:progress", email)
}

// CandidateActiveSessionKey returns the cache key for a candidate's
// currently active session id.
func (r *CacheKeyStruct) CandidateActiveSessionKey(email string) string {
	return fmt.Sprintf("candidate:%s:active_session", email)
}

var CacheKey = NewCacheKeyStruct()
