// Package validation checks URLs before they leave the process, either as a
// background fetch or as an argument to the platform's browser launcher.
package validation

import (
	"fmt"
	"net/url"
	"strings"
)

// shellMeta are characters a browser launcher command line must never see.
var shellMeta = []string{";", "&", "|", "`", "$", "(", ")", "<", ">", "\"", "'", "\\", "\n", "\r", " "}

// ValidateURL validates a URL passed to the browser auto-open command.
func ValidateURL(rawURL string) error {
	parsed, err := parseHTTP(rawURL)
	if err != nil {
		return err
	}

	for _, char := range shellMeta {
		if strings.Contains(rawURL, char) {
			return fmt.Errorf("URL contains dangerous character: %q", char)
		}
	}

	if parsed.User != nil {
		return fmt.Errorf("URL must not carry credentials")
	}
	return nil
}

// ValidateRemoteRef validates an http(s) background reference before it is
// fetched. Query strings are allowed; control characters are not.
func ValidateRemoteRef(ref string) error {
	if _, err := parseHTTP(ref); err != nil {
		return err
	}
	for _, r := range ref {
		if r < 0x20 || r == 0x7f {
			return fmt.Errorf("URL contains control character %U", r)
		}
	}
	return nil
}

func parseHTTP(rawURL string) (*url.URL, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid URL scheme: %q (only http/https allowed)", parsed.Scheme)
	}
	if parsed.Hostname() == "" {
		return nil, fmt.Errorf("URL must have a valid hostname")
	}
	return parsed, nil
}
