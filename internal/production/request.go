package production

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/exact3design/soundcard/internal/apperr"
	"github.com/exact3design/soundcard/internal/models"
)

// SetupRequest is the order intake payload.
type SetupRequest struct {
	Source string        `json:"source"`
	Buyer  Buyer         `json:"buyer"`
	Cards  []CardRequest `json:"cards"`
}

// Buyer identifies who placed the order and where it ships.
type Buyer struct {
	Name                   string  `json:"name"`
	Email                  string  `json:"email"`
	Phone                  *string `json:"phone"`
	Address                Address `json:"address"`
	MarketplaceOrderNumber *string `json:"etsyOrderNumber"`
}

// Address is a shipping address.
type Address struct {
	Line1   string  `json:"line1"`
	Line2   *string `json:"line2,omitempty"`
	City    string  `json:"city"`
	State   string  `json:"state"`
	Zip     string  `json:"zip"`
	Country string  `json:"country"`
}

// CardRequest is one card of the order. Waveform may be a number, a numeric
// string, "random", or absent.
type CardRequest struct {
	Waveform any     `json:"waveform"`
	Message  *string `json:"message"`
}

// Lines formats the address for the operator summary.
func (a Address) Lines() []string {
	lines := []string{a.Line1}
	if a.Line2 != nil && strings.TrimSpace(*a.Line2) != "" {
		lines = append(lines, *a.Line2)
	}
	lines = append(lines, fmt.Sprintf("%s, %s %s", a.City, a.State, a.Zip), a.Country)
	return lines
}

// Normalize trims fields and applies the source and country defaults.
func (r *SetupRequest) Normalize() {
	r.Source = strings.ToLower(strings.TrimSpace(r.Source))
	if r.Source == "" {
		r.Source = models.OrderSourceEtsy
	}
	b := &r.Buyer
	b.Name = strings.TrimSpace(b.Name)
	b.Email = strings.TrimSpace(b.Email)
	b.Phone = trimOptional(b.Phone)
	b.MarketplaceOrderNumber = trimOptional(b.MarketplaceOrderNumber)
	a := &b.Address
	a.Line1 = strings.TrimSpace(a.Line1)
	a.Line2 = trimOptional(a.Line2)
	a.City = strings.TrimSpace(a.City)
	a.State = strings.TrimSpace(a.State)
	a.Zip = strings.TrimSpace(a.Zip)
	a.Country = strings.ToUpper(strings.TrimSpace(a.Country))
	if a.Country == "" {
		a.Country = "US"
	}
}

// Validate checks the request against maxCards. It never touches storage.
func (r *SetupRequest) Validate(maxCards int) error {
	switch r.Source {
	case models.OrderSourceEtsy, models.OrderSourceDirect:
	default:
		return apperr.InvalidInput("Invalid request: source must be etsy or direct.")
	}
	b := r.Buyer
	required := []struct {
		field string
		value string
	}{
		{"buyer.name", b.Name},
		{"buyer.email", b.Email},
		{"buyer.address.line1", b.Address.Line1},
		{"buyer.address.city", b.Address.City},
		{"buyer.address.state", b.Address.State},
		{"buyer.address.zip", b.Address.Zip},
	}
	for _, f := range required {
		if f.value == "" {
			return apperr.InvalidInput(fmt.Sprintf("Invalid request: %s is required.", f.field))
		}
	}
	if addr, err := mail.ParseAddress(b.Email); err != nil || addr.Address != b.Email {
		return apperr.InvalidInput("Invalid request: buyer.email is not a valid email address.")
	}
	if len(r.Cards) == 0 {
		return apperr.InvalidInput("Invalid request: at least one card is required.")
	}
	if len(r.Cards) > maxCards {
		return apperr.InvalidInput(fmt.Sprintf("Too many cards. Max is %d.", maxCards))
	}
	return nil
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
