package like

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// IpifyResolver asks an ipify-compatible endpoint for the public address
// this process egresses from.
type IpifyResolver struct {
	client *resty.Client
	url    string
}

func NewIpifyResolver(url string) *IpifyResolver {
	if url == "" {
		url = "https://api.ipify.org"
	}
	return &IpifyResolver{
		client: resty.New().SetTimeout(5 * time.Second),
		url:    url,
	}
}

type ipifyResponse struct {
	IP string `json:"ip"`
}

func (r *IpifyResolver) Resolve(ctx context.Context) (string, error) {
	var body ipifyResponse
	resp, err := r.client.R().
		SetContext(ctx).
		SetQueryParam("format", "json").
		SetResult(&body).
		Get(r.url)
	if err != nil {
		return "", fmt.Errorf("ip lookup: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("ip lookup: status %d", resp.StatusCode())
	}
	ip := strings.TrimSpace(body.IP)
	if net.ParseIP(ip) == nil {
		return "", fmt.Errorf("ip lookup: invalid address %q", body.IP)
	}
	return ip, nil
}

// RequestOrigin resolves to the address of the HTTP peer. Loopback peers
// (local development, a proxy on the same host) are resolved through
// Fallback instead.
type RequestOrigin struct {
	IP       string
	Fallback OriginResolver
}

func (o RequestOrigin) Resolve(ctx context.Context) (string, error) {
	ip := net.ParseIP(strings.TrimSpace(o.IP))
	if ip != nil && !ip.IsLoopback() && !ip.IsUnspecified() {
		return ip.String(), nil
	}
	if o.Fallback == nil {
		return "", errors.New("origin: no usable client address")
	}
	return o.Fallback.Resolve(ctx)
}
