// Copyright (c) 2025 ToeiRei
// Fleetpush - SSH fleet file deployment
// This source code is licensed under the MIT license found in the LICENSE file.

package i18n

import (
	"strings"
	"testing"
)

func TestTFallsBackToMessageID(t *testing.T) {
	Init("en")
	if got := T("no.such.key"); got != "no.such.key" {
		t.Errorf("expected message ID fallback, got %q", got)
	}
}

func TestTFormatsArgs(t *testing.T) {
	Init("en")
	got := T("check.summary", 3, 5)
	if got != "3/5 nodes reachable" {
		t.Errorf("unexpected formatted message: %q", got)
	}
}

func TestTWithoutInitDefaultsToEnglish(t *testing.T) {
	localizer = nil
	bundle = nil
	got := T("history.empty")
	if got != "No deployment runs recorded yet." {
		t.Errorf("expected English default, got %q", got)
	}
}

func TestSetLangSwitchesLanguage(t *testing.T) {
	SetLang("de")
	defer SetLang("en")
	got := T("history.empty")
	if !strings.Contains(got, "Einsätze") {
		t.Errorf("expected German translation, got %q", got)
	}
}

func TestNestedKeysFlatten(t *testing.T) {
	Init("en")
	if got := T("tui.history.title"); got != "Deployment History" {
		t.Errorf("nested key not resolved: %q", got)
	}
}

func TestGetLang(t *testing.T) {
	Init("en")
	if GetLang() != "en" {
		t.Errorf("lang = %q, want en", GetLang())
	}
	SetLang("de")
	defer SetLang("en")
	if GetLang() != "de" {
		t.Errorf("lang = %q, want de", GetLang())
	}
}

func TestGetAvailableLocales(t *testing.T) {
	av := GetAvailableLocales()
	for _, k := range []string{"en", "de"} {
		if _, ok := av[k]; !ok {
			t.Fatalf("expected available locale %q to be present", k)
		}
	}
	if av["de"] != "Deutsch" {
		t.Errorf("display name for de = %q", av["de"])
	}
}
