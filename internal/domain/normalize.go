package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// Tracking parameters stripped during URL normalization. Query params that
// only identify a campaign must not defeat dedup of the same article.
var trackingParams = map[string]struct{}{
	"fbclid":   {},
	"gclid":    {},
	"mc_cid":   {},
	"mc_eid":   {},
	"ref":      {},
	"ref_src":  {},
	"igshid":   {},
	"spm":      {},
	"_hsenc":   {},
	"_hsmi":    {},
	"vero_id":  {},
	"wickedid": {},
}

// NormalizeURL canonicalizes a content URL for dedup: lowercases scheme and
// host, drops fragments and tracking parameters (including the whole utm_*
// family), and trims a trailing slash from the path.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty url")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("failed to parse url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("url missing scheme or host: %s", raw)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	q := u.Query()
	for key := range q {
		lower := strings.ToLower(key)
		if strings.HasPrefix(lower, "utm_") {
			q.Del(key)
			continue
		}
		if _, tracked := trackingParams[lower]; tracked {
			q.Del(key)
		}
	}
	u.RawQuery = q.Encode()

	if u.Path != "/" {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}

	return u.String(), nil
}
