package waste

import (
	"net/url"
	"strings"
)

// EvidencePhotos splits a vendor imgUrl into its before/after pair. The
// vendor joins both shots with a comma and sometimes ships the first part as
// a bare path; in that case it is resolved against the second URL's origin.
// A missing second shot falls back to the first.
func EvidencePhotos(urlStr string) (before, after string) {
	if urlStr == "" {
		return "", ""
	}

	parts := strings.Split(urlStr, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}

	before = parts[0]
	after = before
	if len(parts) > 1 && parts[1] != "" {
		after = parts[1]
	}

	if strings.HasPrefix(after, "http") && !strings.HasPrefix(before, "http") {
		if u, err := url.Parse(after); err == nil && u.Scheme != "" && u.Host != "" {
			path := before
			if !strings.HasPrefix(path, "/") {
				path = "/" + path
			}
			before = u.Scheme + "://" + u.Host + path
		}
	}

	return before, after
}
