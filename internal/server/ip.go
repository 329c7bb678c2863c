package server

import (
	"net"
	"net/http"
	"strings"
)

// ------------------------------------------------------------
// 요청 로그용 클라이언트 IP.
//
// 로컬 개발용 서버지만 reverse proxy / tunnel 뒤에 두는 경우도 있으므로
// proxy 헤더를 먼저 본다.
// ------------------------------------------------------------

// isPublicIP 는 private / loopback / link-local 이 아니면 true.
func isPublicIP(ip net.IP) bool {
	if ip == nil {
		return false
	}
	if ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return false
	}
	return true
}

func safeParseIP(s string) net.IP {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return net.ParseIP(s)
}

// clientIP
//
// 우선순위:
//  1. X-Forwarded-For 의 첫 번째 public IP
//  2. X-Real-IP
//  3. RemoteAddr (loopback 이어도 그대로 사용)
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for _, part := range strings.Split(xff, ",") {
			if ip := safeParseIP(part); isPublicIP(ip) {
				return ip.String()
			}
		}
	}

	if ip := safeParseIP(r.Header.Get("X-Real-IP")); ip != nil {
		return ip.String()
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if ip := safeParseIP(host); ip != nil {
		return ip.String()
	}
	return ""
}
