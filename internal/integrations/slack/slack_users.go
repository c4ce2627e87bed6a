package slackbot

import (
	"log"
	"strings"
	"sync"
	"time"

	"github.com/slack-go/slack"
)

const userCacheTTL = 5 * time.Minute

var userCache struct {
	sync.Mutex
	users     []slack.User
	fetchedAt time.Time
}

func getCachedUsers(api *slack.Client) ([]slack.User, error) {
	userCache.Lock()
	defer userCache.Unlock()

	if userCache.users != nil && time.Since(userCache.fetchedAt) < userCacheTTL {
		return userCache.users, nil
	}

	users, err := api.GetUsers()
	if err != nil {
		return nil, err
	}
	userCache.users = users
	userCache.fetchedAt = time.Now()
	return users, nil
}

// ResolveUserIDs maps a mix of Slack IDs and user names (handle, real name or
// display name) to IDs. Names that match nobody are returned separately.
func ResolveUserIDs(api *slack.Client, identifiers []string) ([]string, []string, error) {
	var ids []string
	var names []string

	for _, raw := range identifiers {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		if isLikelySlackID(val) {
			ids = append(ids, val)
		} else {
			names = append(names, val)
		}
	}

	if len(names) == 0 {
		return uniqueStrings(ids), nil, nil
	}

	users, err := getCachedUsers(api)
	if err != nil {
		log.Printf("resolve users: get users error: %v", err)
		return uniqueStrings(ids), names, err
	}

	nameToID := make(map[string]string)
	for _, user := range users {
		for _, n := range []string{user.Name, user.RealName, user.Profile.DisplayName} {
			n = strings.ToLower(strings.TrimSpace(n))
			if n == "" {
				continue
			}
			if _, exists := nameToID[n]; !exists {
				nameToID[n] = user.ID
			}
		}
	}

	var unresolved []string
	for _, name := range names {
		if id, ok := nameToID[strings.ToLower(name)]; ok {
			ids = append(ids, id)
		} else {
			unresolved = append(unresolved, name)
		}
	}

	log.Printf("resolve users: ids=%d unresolved=%d", len(ids), len(unresolved))
	return uniqueStrings(ids), unresolved, nil
}

// reporterName prefers the Slack display name, then the real name, then
// the handle sent with the command.
func reporterName(api *slack.Client, userID, fallback string) string {
	user, err := api.GetUserInfo(userID)
	if err != nil {
		log.Printf("reporter name lookup failed user=%s: %v", userID, err)
		return fallback
	}
	for _, n := range []string{user.Profile.DisplayName, user.RealName, user.Name} {
		if n = strings.TrimSpace(n); n != "" {
			return n
		}
	}
	return fallback
}

func isLikelySlackID(val string) bool {
	if len(val) < 9 {
		return false
	}
	for i, r := range val {
		if i == 0 {
			if r != 'U' && r != 'W' {
				return false
			}
			continue
		}
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

func uniqueStrings(vals []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range vals {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
