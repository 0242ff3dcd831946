// Package paylink builds external payment page URLs.
//
// Fire-and-forget: the link is pure string construction from already
// validated invoice fields. No network call happens here, and no
// callback handling exists; opening the link is the presentation
// layer's side effect.
package paylink

import (
	"fmt"
	"net/url"

	"github.com/shopspring/decimal"
)

// Generator builds payment URLs against one configured payment page.
type Generator struct {
	// BaseURL is the external payment page, e.g.
	// "https://buy.stripe.com/test_xyz".
	BaseURL string
}

// BuildLink constructs the payment URL for a client and amount. The
// client name is percent-encoded; the amount is embedded as a plain
// decimal string.
func (g Generator) BuildLink(client string, amount decimal.Decimal) string {
	params := url.Values{}
	params.Set("client", client)
	params.Set("amount", amount.String())
	return fmt.Sprintf("%s?%s", g.BaseURL, params.Encode())
}
