package notification

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ResolveDeepLink maps a notification data payload to the in-app route the
// mobile client opens when the notification is tapped. The contract, in order:
// a movieId/movie_id value (string or number) routes to /movie/<id>; otherwise
// a url value beginning with "/" routes to that path; anything else produces no
// navigation, reported as the empty string.
func ResolveDeepLink(data map[string]interface{}) string {
	if data == nil {
		return ""
	}

	if id, ok := movieIDValue(data["movieId"]); ok {
		return "/movie/" + id
	}
	if id, ok := movieIDValue(data["movie_id"]); ok {
		return "/movie/" + id
	}

	if url, ok := data["url"].(string); ok && strings.HasPrefix(url, "/") {
		return url
	}
	return ""
}

// ResolveDeepLinkJSON is ResolveDeepLink over the stored JSON payload column.
func ResolveDeepLinkJSON(raw string) string {
	if raw == "" {
		return ""
	}
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return ""
	}
	return ResolveDeepLink(data)
}

func movieIDValue(v interface{}) (string, bool) {
	switch id := v.(type) {
	case string:
		if id != "" {
			return id, true
		}
	case float64:
		// JSON numbers decode as float64; ids are integral.
		if id == math.Trunc(id) {
			return strconv.FormatInt(int64(id), 10), true
		}
		return fmt.Sprintf("%v", id), true
	case json.Number:
		return id.String(), true
	case int:
		return strconv.Itoa(id), true
	case uint:
		return strconv.FormatUint(uint64(id), 10), true
	}
	return "", false
}
