// Copyright (c) 2025 ToeiRei
// Fleetpush - SSH fleet file deployment
// This source code is licensed under the MIT license found in the LICENSE file.

// package sshkey loads the operator's SSH identity file into a signer the
// transport can authenticate with.
package sshkey

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/ssh"

	"github.com/toeirei/fleetpush/internal/i18n"
)

// ErrPassphraseRequired marks an encrypted identity file for which no
// passphrase was supplied. Callers can prompt and retry.
var ErrPassphraseRequired = errors.New("passphrase required")

// LoadSigner reads and parses the private key at path. An empty passphrase
// on an encrypted key yields ErrPassphraseRequired so the caller can decide
// whether a prompt is possible.
func LoadSigner(path string, passphrase []byte) (ssh.Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf(i18n.T("sshkey.error_read"), path, err)
	}

	if len(passphrase) > 0 {
		signer, err := ssh.ParsePrivateKeyWithPassphrase(data, passphrase)
		if err != nil {
			return nil, fmt.Errorf(i18n.T("sshkey.error_parse"), path, err)
		}
		return signer, nil
	}

	signer, err := ssh.ParsePrivateKey(data)
	if err != nil {
		var missing *ssh.PassphraseMissingError
		if errors.As(err, &missing) {
			return nil, fmt.Errorf("%s: %w", path, ErrPassphraseRequired)
		}
		return nil, fmt.Errorf(i18n.T("sshkey.error_parse"), path, err)
	}
	return signer, nil
}
