package helpers

import (
	"errors"
	"net/url"
	"strings"
)

// ResolveURL resolves href against base. Absolute hrefs are returned as is,
// protocol-relative ones take the scheme of base.
func ResolveURL(base, href string) (string, error) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", errors.New("empty href")
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}

	resolved := baseURL.ResolveReference(ref)
	if !resolved.IsAbs() {
		return "", errors.New("cannot build an absolute URL from " + href)
	}
	return resolved.String(), nil
}
