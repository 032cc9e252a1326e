// Copyright (c) 2025 ToeiRei
// Fleetpush - SSH fleet file deployment
// This source code is licensed under the MIT license found in the LICENSE file.

// package i18n provides internationalization and localization support for
// fleetpush. It uses the go-i18n library to load and manage translation
// files, allowing the user interface to be displayed in multiple languages.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
	"gopkg.in/yaml.v3"
)

// localeFS embeds the YAML translation files from the 'locales' directory
// into the application binary.
//
//go:embed locales/*.yaml
var localeFS embed.FS

// bundle stores all the loaded translation messages from the locale files.
var bundle *i18n.Bundle

// localizer is used to translate messages into a specific language.
var localizer *i18n.Localizer

// currentLang is the language the localizer was last initialized with.
var currentLang string

// Init initializes the i18n bundle and sets up the localizer for a specific
// language. It parses all embedded YAML files from the 'locales' directory.
func Init(lang string) {
	bundle = i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)

	files, _ := fs.ReadDir(localeFS, "locales")
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		data, _ := localeFS.ReadFile("locales/" + f.Name())
		bundle.ParseMessageFileBytes(data, f.Name())
	}

	localizer = i18n.NewLocalizer(bundle, lang)
	currentLang = lang
}

// T translates a message by its ID. Extra arguments are applied with
// fmt.Sprintf against the translated string, so translations carry printf
// verbs. If the i18n system has not been initialized, it defaults to
// English. If a translation for the given ID is not found, the ID itself
// comes back so the caller never loses the message.
func T(messageID string, args ...any) string {
	if localizer == nil {
		Init("en")
	}
	msg, err := localizer.Localize(&i18n.LocalizeConfig{MessageID: messageID})
	if err != nil {
		msg = messageID
	}
	if len(args) > 0 {
		return fmt.Sprintf(msg, args...)
	}
	return msg
}

// SetLang changes the active language of the localizer.
func SetLang(lang string) {
	Init(lang)
}

// GetLang returns the language the localizer is currently using.
func GetLang() string {
	if currentLang == "" {
		return "en"
	}
	return currentLang
}

// GetAvailableLocales returns the locales bundled into the binary, keyed by
// language tag. Values are native display names suitable for a menu.
func GetAvailableLocales() map[string]string {
	out := make(map[string]string)
	files, err := fs.ReadDir(localeFS, "locales")
	if err != nil {
		return out
	}
	for _, f := range files {
		name := f.Name()
		if f.IsDir() || !strings.HasPrefix(name, "active.") || !strings.HasSuffix(name, ".yaml") {
			continue
		}
		code := strings.TrimSuffix(strings.TrimPrefix(name, "active."), ".yaml")
		tag, err := language.Parse(code)
		if err != nil {
			out[code] = code
			continue
		}
		if n := display.Self.Name(tag); n != "" {
			out[code] = n
		} else {
			out[code] = code
		}
	}
	return out
}
