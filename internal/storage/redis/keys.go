package redis

import (
	"fmt"

	"github.com/mcoot/credaudit/internal/model"
)

// Key prefix for all audit data
const keyPrefix = "credaudit"

// accountKey returns the Redis key for an Account
func accountKey(username string) string {
	return fmt.Sprintf("%s:account:%s", keyPrefix, username)
}

// accountsIndexKey returns the Redis key for the SET of known usernames
func accountsIndexKey() string {
	return fmt.Sprintf("%s:idx:accounts", keyPrefix)
}

// dictionaryKey returns the Redis key for the ordered dictionary LIST
func dictionaryKey() string {
	return fmt.Sprintf("%s:dictionary", keyPrefix)
}

// dictionaryLoadedKey marks that a dictionary was saved, even an empty one
func dictionaryLoadedKey() string {
	return fmt.Sprintf("%s:dictionary:loaded", keyPrefix)
}

// runKey returns the Redis key for a RunRecord
func runKey(id model.RunID) string {
	return fmt.Sprintf("%s:run:%s", keyPrefix, id)
}

// runsIndexKey returns the Redis key for the ZSET of runs scored by finish time
func runsIndexKey() string {
	return fmt.Sprintf("%s:idx:runs", keyPrefix)
}
