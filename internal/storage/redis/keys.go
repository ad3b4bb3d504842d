package redis

import (
	"fmt"

	"github.com/mcoot/pinauthority/internal/model"
)

// Key prefix for all authority data
const keyPrefix = "pinauth"

// accountKey returns the Redis key for an Account record
func accountKey(id model.AccountID) string {
	return fmt.Sprintf("%s:account:%d", keyPrefix, id)
}

// usernameIndexKey returns the Redis key for the username -> account_id index
func usernameIndexKey(username string) string {
	return fmt.Sprintf("%s:idx:username:%s", keyPrefix, username)
}

// accountSequenceKey returns the Redis key for the account id counter
func accountSequenceKey() string {
	return fmt.Sprintf("%s:seq:account", keyPrefix)
}
