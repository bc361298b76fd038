// Package privacy masks credentials and host details in text that leaves
// the process: log lines, notification errors and telemetry events.
package privacy

import (
	"crypto/sha256"
	"fmt"
	"net/netip"
	"net/url"
	"regexp"
	"strings"
)

var (
	// any scheme://user[:pass]@ prefix
	urlUserinfo = regexp.MustCompile(`([a-zA-Z][a-zA-Z0-9+.-]*://)[^/@\s]+@`)

	// URLs worth anonymizing in telemetry text
	urlPattern = regexp.MustCompile(`\b(?:https?|rtsp|rtmp|tcp|ssl|mqtts?|wss?)://\S+`)
)

// ScrubCredentials masks the userinfo of every URL in s and leaves the rest
// readable.
func ScrubCredentials(s string) string {
	if !strings.Contains(s, "@") {
		return s
	}
	return urlUserinfo.ReplaceAllString(s, "${1}***@")
}

// ScrubMessage replaces every URL in message with AnonymizeURL's token.
func ScrubMessage(message string) string {
	return urlPattern.ReplaceAllStringFunc(message, AnonymizeURL)
}

// AnonymizeURL maps a URL to a stable token. URLs with the same scheme, host
// category, port and path shape map to the same token.
func AnonymizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		hash := sha256.Sum256([]byte(rawURL))
		return fmt.Sprintf("url-hash-%x", hash[:8])
	}

	var parts []string
	if u.Scheme != "" {
		parts = append(parts, u.Scheme)
	}
	if host := u.Hostname(); host != "" {
		parts = append(parts, categorizeHost(host))
	}
	if port := u.Port(); port != "" {
		parts = append(parts, "port-"+port)
	}
	if u.Path != "" && u.Path != "/" {
		parts = append(parts, anonymizePath(u.Path))
	}

	hash := sha256.Sum256([]byte(strings.Join(parts, ":")))
	return fmt.Sprintf("url-%x", hash[:12])
}

// SanitizeURL keeps scheme, host and port and drops credentials, path and
// query. Text that is not a URL with a host comes back unchanged.
func SanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Scheme + "://" + u.Host
}

func categorizeHost(host string) string {
	if host == "localhost" {
		return "localhost"
	}
	if addr, err := netip.ParseAddr(host); err == nil {
		switch {
		case addr.IsLoopback():
			return "localhost"
		case addr.IsPrivate(), addr.IsLinkLocalUnicast(), addr.IsMulticast():
			return "private-ip"
		default:
			return "public-ip"
		}
	}
	if i := strings.LastIndexByte(host, '.'); i >= 0 && i < len(host)-1 {
		return "domain-" + host[i+1:]
	}
	return "unknown-host"
}

// anonymizePath keeps the number of segments and hashes each one.
func anonymizePath(path string) string {
	path = strings.Trim(path, "/")
	if path == "" {
		return "root"
	}

	var segs []string
	for seg := range strings.SplitSeq(path, "/") {
		switch {
		case seg == "":
			continue
		case isNumeric(seg):
			segs = append(segs, "numeric")
		default:
			hash := sha256.Sum256([]byte(seg))
			segs = append(segs, fmt.Sprintf("seg-%x", hash[:4]))
		}
	}
	return strings.Join(segs, "/")
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
