// Copyright (c) 2025 ToeiRei
// Fleetpush - SSH fleet file deployment
// This source code is licensed under the MIT license found in the LICENSE file.

package logging

import "log"

var debugEnabled bool

// SetDebug controls whether calls to Debugf emit output.
func SetDebug(enabled bool) {
	debugEnabled = enabled
}

// Debugf logs a formatted debug message when debug is enabled.
func Debugf(format string, v ...any) {
	if debugEnabled {
		log.Printf(format, v...)
	}
}

// Infof logs an informational formatted message.
func Infof(format string, v ...any) {
	log.Printf(format, v...)
}

// Errorf logs an error formatted message.
func Errorf(format string, v ...any) {
	log.Printf(format, v...)
}

// Printf is a convenience alias for Infof.
func Printf(format string, v ...any) {
	Infof(format, v...)
}
