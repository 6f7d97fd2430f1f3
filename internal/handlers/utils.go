package handlers

import "strings"

// extractBearerToken returns the token from an "Authorization: Bearer x"
// header, or empty if the header has another scheme.
func extractBearerToken(header string) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// originHosts turns CORS origins ("https://a.example") into the host patterns
// websocket.Accept checks against ("a.example").
func originHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, o := range origins {
		if _, rest, ok := strings.Cut(o, "://"); ok {
			o = rest
		}
		hosts = append(hosts, strings.TrimSuffix(o, "/"))
	}
	return hosts
}
