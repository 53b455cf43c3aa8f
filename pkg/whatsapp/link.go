// Package whatsapp builds click-to-chat links for handing a conversation
// over to WhatsApp.
package whatsapp

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"
)

const baseURL = "https://wa.me/"

// Link returns a wa.me click-to-chat URL for the given phone number with an
// optional prefilled message. The phone number is reduced to digits; wa.me
// requires the international format without +, spaces, or dashes.
func Link(phone, text string) (string, error) {
	digits := digitsOnly(phone)
	if len(digits) < 7 {
		return "", fmt.Errorf("phone number too short for a wa.me link: %q", phone)
	}

	link := baseURL + digits
	if text != "" {
		link += "?text=" + url.QueryEscape(text)
	}
	return link, nil
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
