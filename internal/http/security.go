package http

import (
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
)

// securityMetrics counts security-relevant events across all requests.
type securityMetrics struct {
	rateLimitHits      int64
	suspiciousRequests int64
}

func (m *securityMetrics) recordRateLimitHit() {
	atomic.AddInt64(&m.rateLimitHits, 1)
}

func (m *securityMetrics) recordSuspiciousRequest() {
	atomic.AddInt64(&m.suspiciousRequests, 1)
}

// trustedProxies lists networks whose forwarding headers are honored.
var trustedProxies = []*net.IPNet{
	parseCIDR("127.0.0.0/8"),
	parseCIDR("10.0.0.0/8"),
	parseCIDR("172.16.0.0/12"),
	parseCIDR("192.168.0.0/16"),
}

func parseCIDR(cidr string) *net.IPNet {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		panic("invalid CIDR in trusted proxies: " + cidr)
	}
	return network
}

func isTrustedProxy(ip net.IP) bool {
	for _, network := range trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// extractClientIP returns the real client address, honoring forwarding
// headers only when the direct peer is a trusted proxy.
func extractClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}

	directIP := net.ParseIP(host)
	if directIP == nil {
		return host
	}

	if !isTrustedProxy(directIP) {
		return host
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for _, candidate := range strings.Split(xff, ",") {
			candidate = strings.TrimSpace(candidate)
			if ip := net.ParseIP(candidate); ip != nil {
				return candidate
			}
		}
	}

	if realIP := strings.TrimSpace(r.Header.Get("X-Real-Ip")); realIP != "" {
		if ip := net.ParseIP(realIP); ip != nil {
			return realIP
		}
	}

	return host
}

var suspiciousPathPatterns = []string{
	"../",
	"..\\",
	"/etc/passwd",
	"/proc/",
	"cmd.exe",
	"powershell",
	"<script",
	"javascript:",
	"data:text/html",
	"file://",
}

var suspiciousAgentPatterns = []string{
	"sqlmap",
	"nikto",
	"nmap",
	"masscan",
	"zgrab",
	"gobuster",
	"dirb",
}

// detectSuspiciousRequest flags requests that look like scanner or
// injection probes. Matches are logged, never blocked: legitimate
// API clients are too varied to filter by shape.
func detectSuspiciousRequest(r *http.Request, metrics *securityMetrics) bool {
	target := strings.ToLower(r.URL.Path + "?" + r.URL.RawQuery)
	decoded, err := url.QueryUnescape(target)
	if err != nil {
		decoded = target
	}
	for _, pattern := range suspiciousPathPatterns {
		if strings.Contains(target, pattern) || strings.Contains(decoded, pattern) {
			metrics.recordSuspiciousRequest()
			return true
		}
	}

	agent := strings.ToLower(r.Header.Get("User-Agent"))
	for _, pattern := range suspiciousAgentPatterns {
		if strings.Contains(agent, pattern) {
			metrics.recordSuspiciousRequest()
			return true
		}
	}

	switch r.Method {
	case "TRACE", "TRACK", "DEBUG", "CONNECT":
		metrics.recordSuspiciousRequest()
		return true
	}

	if len(r.URL.String()) > 2048 {
		metrics.recordSuspiciousRequest()
		return true
	}

	if xff := r.Header.Get("X-Forwarded-For"); strings.Count(xff, ",") > 5 {
		metrics.recordSuspiciousRequest()
		return true
	}

	return false
}
