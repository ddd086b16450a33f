package redis

import (
	"fmt"

	"github.com/mcoot/typerace/internal/model"
)

// Key prefix for all typerace data
const keyPrefix = "typerace"

// accountKey returns the Redis key for an Account
func accountKey(id model.AccountID) string {
	return fmt.Sprintf("%s:account:%s", keyPrefix, id)
}

// usernameIndexKey returns the Redis key for the username -> account_id index
func usernameIndexKey(username string) string {
	return fmt.Sprintf("%s:idx:username:%s", keyPrefix, username)
}

// scoresKey returns the Redis key for a player's LIST of score entries, newest first
func scoresKey(playerName string) string {
	return fmt.Sprintf("%s:scores:%s", keyPrefix, playerName)
}

// scoredPlayersKey returns the Redis key for the SET of players with scores
func scoredPlayersKey() string {
	return fmt.Sprintf("%s:idx:scored_players", keyPrefix)
}
