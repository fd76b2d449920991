package redis

import (
	"fmt"

	"github.com/mcoot/triviapool/internal/model"
)

// Key prefix for all session data
const keyPrefix = "triviapool"

// sessionKey returns the Redis key for a Session
func sessionKey(id model.SessionID) string {
	return fmt.Sprintf("%s:session:%d", keyPrefix, id)
}

// sessionSeqKey returns the Redis counter used to allocate session ids
func sessionSeqKey() string {
	return keyPrefix + ":seq:session"
}

// sessionIndexKey returns the Redis ZSET of session keys scored by id
func sessionIndexKey() string {
	return keyPrefix + ":idx:sessions"
}
