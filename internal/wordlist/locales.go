package wordlist

import (
	"fmt"

	"github.com/mietzen/catch-all-autofill/internal/models"
	"github.com/mietzen/catch-all-autofill/internal/shared"
)

// Locale describes a bundled wordlist.
type Locale struct {
	Code string
	Name string
	Flag string
}

var locales = []Locale{
	{Code: "de", Name: "German", Flag: "DE"},
	{Code: "en", Name: "English", Flag: "US"},
	{Code: "es", Name: "Spanish", Flag: "ES"},
	{Code: "fi", Name: "Finnish", Flag: "FI"},
	{Code: "fr", Name: "French", Flag: "FR"},
	{Code: "se", Name: "Swedish", Flag: "SE"},
}

// Locales returns the bundled locales ordered by code.
func Locales() []Locale {
	return append([]Locale(nil), locales...)
}

// LookupLocale finds a bundled locale by code.
func LookupLocale(code string) (Locale, bool) {
	for _, l := range locales {
		if l.Code == code {
			return l, true
		}
	}
	return Locale{}, false
}

// ParseSelection turns a user supplied selection into a selector.
// "custom" requires url; anything else must name a bundled locale.
func ParseSelection(selection, url string) (models.Selector, error) {
	if selection == models.CustomSelection {
		if url == "" {
			return models.Selector{}, fmt.Errorf("%w: custom wordlist requires a URL", shared.ErrMissingArgument)
		}
		return models.CustomSelector(url), nil
	}
	if _, ok := LookupLocale(selection); !ok {
		return models.Selector{}, fmt.Errorf("%w: %q", shared.ErrUnknownLocale, selection)
	}
	return models.BuiltinSelector(selection), nil
}
