// Copyright (c) 2025 ToeiRei
// Fleetpush - SSH fleet file deployment
// This source code is licensed under the MIT license found in the LICENSE file.

package transport

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Host key policies. accept-any mirrors the historical behavior of blindly
// trusting whatever the node presents; known-hosts pins nodes to an OpenSSH
// known_hosts file.
const (
	PolicyAcceptAny  = "accept-any"
	PolicyKnownHosts = "known-hosts"
)

// HostKeyCallbackFor translates a policy string into an ssh callback.
// Accepted forms: "accept-any", "known-hosts" (the user's default file) and
// "known-hosts:<path>". Anything else is a configuration error.
func HostKeyCallbackFor(policy string) (ssh.HostKeyCallback, error) {
	switch {
	case policy == "" || policy == PolicyAcceptAny:
		return ssh.InsecureIgnoreHostKey(), nil
	case policy == PolicyKnownHosts:
		path, err := defaultKnownHostsPath()
		if err != nil {
			return nil, err
		}
		return knownhosts.New(path)
	case strings.HasPrefix(policy, PolicyKnownHosts+":"):
		return knownhosts.New(strings.TrimPrefix(policy, PolicyKnownHosts+":"))
	default:
		return nil, fmt.Errorf("unknown host key policy %q", policy)
	}
}

func defaultKnownHostsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not resolve home directory for known_hosts: %w", err)
	}
	return filepath.Join(home, ".ssh", "known_hosts"), nil
}
