package production

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/exact3design/soundcard/internal/security"
)

// PackDownloadPath is the route serving signed pack downloads.
const PackDownloadPath = "/v0/packs/download"

// PackLinker issues signed, expiring download links for stored packs.
type PackLinker struct {
	BaseURL string
	Secret  string
	TTL     time.Duration
}

// Sign returns a download URL for the pack at path and its expiry.
func (l PackLinker) Sign(orderID, path string) (string, time.Time, error) {
	sig, expiresAt, err := security.SignPackLink(l.Secret, orderID, path, l.TTL)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign pack link: %w", err)
	}
	link := strings.TrimRight(l.BaseURL, "/") + PackDownloadPath + "?sig=" + url.QueryEscape(sig)
	return link, expiresAt, nil
}

// CardURL is the public page a card's QR code points at.
func CardURL(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/v/" + token
}

// PackPath is the object path of an order's production pack.
func PackPath(orderID string) string {
	return "orders/" + orderID + "/production-pack.zip"
}
