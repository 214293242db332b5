package validation

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// StoryURLValidator checks links before they are submitted as stories or
// fetched as feeds.
type StoryURLValidator struct {
	// AllowLocalhost determines if localhost URLs are permitted
	AllowLocalhost bool
	// AllowPrivateIPs determines if private IP addresses are permitted
	AllowPrivateIPs bool
	// MaxLength is the maximum allowed URL length
	MaxLength int
}

// NewStoryURLValidator creates a validator that rejects local and private hosts
func NewStoryURLValidator() *StoryURLValidator {
	return &StoryURLValidator{
		MaxLength: 2048,
	}
}

// NewPermissiveStoryURLValidator creates a validator that allows local development
func NewPermissiveStoryURLValidator() *StoryURLValidator {
	return &StoryURLValidator{
		AllowLocalhost:  true,
		AllowPrivateIPs: true,
		MaxLength:       2048,
	}
}

// ForHosts picks the secure or permissive validator.
func ForHosts(allowPrivate bool) *StoryURLValidator {
	if allowPrivate {
		return NewPermissiveStoryURLValidator()
	}
	return NewStoryURLValidator()
}

// ValidateAndNormalize validates a story URL and returns the normalized version.
// Inputs without a scheme get https.
func (v *StoryURLValidator) ValidateAndNormalize(input string) (string, error) {
	input = strings.TrimSpace(input)

	if input == "" {
		return "", fmt.Errorf("URL cannot be empty")
	}
	if len(input) > v.MaxLength {
		return "", fmt.Errorf("URL too long (max %d characters)", v.MaxLength)
	}

	if strings.ContainsAny(input, "<>\"'` ") {
		return "", fmt.Errorf("URL contains invalid characters")
	}

	if !strings.Contains(input, "://") {
		input = "https://" + input
	}

	parsedURL, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("invalid URL format: %w", err)
	}

	scheme := strings.ToLower(parsedURL.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("URL must use http or https protocol")
	}
	parsedURL.Scheme = scheme

	if parsedURL.Hostname() == "" {
		return "", fmt.Errorf("URL must have a valid hostname")
	}
	parsedURL.Host = strings.ToLower(parsedURL.Host)

	if err := v.validateHostSecurity(parsedURL.Hostname()); err != nil {
		return "", err
	}

	if strings.Contains(strings.ToLower(parsedURL.RawQuery), "javascript:") ||
		strings.Contains(strings.ToLower(parsedURL.RawQuery), "<script") {
		return "", fmt.Errorf("suspicious query parameters detected")
	}

	return parsedURL.String(), nil
}

func (v *StoryURLValidator) validateHostSecurity(hostname string) error {
	if !v.AllowLocalhost && isLocalhost(hostname) {
		return fmt.Errorf("localhost URLs are not permitted")
	}

	if !v.AllowPrivateIPs {
		if ip := net.ParseIP(hostname); ip != nil && isPrivateIP(ip) {
			return fmt.Errorf("private IP addresses are not permitted")
		}
	}

	if hostname == "0.0.0.0" || hostname == "255.255.255.255" {
		return fmt.Errorf("unroutable host %s", hostname)
	}

	return nil
}

func isLocalhost(hostname string) bool {
	return hostname == "localhost" ||
		hostname == "127.0.0.1" ||
		hostname == "::1" ||
		strings.HasSuffix(hostname, ".localhost")
}

var privateBlocks = func() []*net.IPNet {
	var blocks []*net.IPNet
	for _, cidr := range []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"169.254.0.0/16",
		"127.0.0.0/8",
		"fc00::/7",
		"fe80::/10",
	} {
		_, block, err := net.ParseCIDR(cidr)
		if err == nil {
			blocks = append(blocks, block)
		}
	}
	return blocks
}()

func isPrivateIP(ip net.IP) bool {
	for _, block := range privateBlocks {
		if block.Contains(ip) {
			return true
		}
	}
	return false
}
