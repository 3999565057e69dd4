// Package translate formats user visible messages for the current locale.
package translate

import (
	"log"
	"sync"

	"github.com/jeandeaual/go-locale"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// fallback is used when the host reports no usable locale.
const fallback = "en-US"

var tag = sync.OnceValue(func() language.Tag {
	locales, err := locale.GetLocales()
	if err != nil {
		log.Printf("regvm: locale: %v", err)
	}

	if len(locales) == 0 {
		locales = []string{fallback}
	}

	return message.MatchLanguage(locales...)
})

var printer = sync.OnceValue(func() *message.Printer {
	return message.NewPrinter(tag())
})

// Locale returns the language tag messages are rendered in.
func Locale() language.Tag {
	return tag()
}

// From an en-US Sprintf() format, translate to string.
func From(key message.Reference, args ...any) string {
	return printer().Sprintf(key, args...)
}
