package nginxconf

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// cloudflareIPsURL is fetched to populate the ACL when NGINX_CLOUDFLARE_ACL
// is truthy (spec.md §4.7 step 6). Var, not const, so tests can point it at
// a local fixture server.
var cloudflareIPsURL = "https://api.cloudflare.com/client/v4/ips"

type cloudflareIPsResponse struct {
	Result struct {
		IPv4CIDRs []string `json:"ipv4_cidrs"`
		IPv6CIDRs []string `json:"ipv6_cidrs"`
	} `json:"result"`
	Success bool `json:"success"`
}

// FetchCloudflareACL builds the "allow <cidr>;" lines for Cloudflare's
// published edge ranges, plus sshClientIP if non-empty, terminated by
// "allow 127.0.0.1; deny all;". Grounded on the teacher's internal/ai
// context-scoped http.Client.Do pattern, the only outbound-HTTP precedent
// in the pack.
func FetchCloudflareACL(ctx context.Context, includeIPv6 bool, sshClientIP string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cloudflareIPsURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var parsed cloudflareIPsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	var lines []string
	for _, cidr := range parsed.Result.IPv4CIDRs {
		lines = append(lines, fmt.Sprintf("allow %s;", cidr))
	}
	if includeIPv6 {
		for _, cidr := range parsed.Result.IPv6CIDRs {
			lines = append(lines, fmt.Sprintf("allow %s;", cidr))
		}
	}
	if sshClientIP != "" {
		lines = append(lines, fmt.Sprintf("allow %s;", sshClientIP))
	}
	lines = append(lines, "allow 127.0.0.1;", "deny all;")
	return lines, nil
}
