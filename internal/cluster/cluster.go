// Copyright (c) 2025 ToeiRei
// Fleetpush - SSH fleet file deployment
// This source code is licensed under the MIT license found in the LICENSE file.

// package cluster reads the roster of nodes a push targets. The roster is a
// plain text file of whitespace-delimited node names; '#' starts a comment
// that runs to the end of the line. Order is preserved and duplicates are
// kept: a node listed twice is deployed to twice.
package cluster

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/toeirei/fleetpush/internal/i18n"
)

// Load reads the roster file at path. A missing or unreadable file is an
// error; an existing file with no tokens yields an empty, valid roster.
func Load(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf(i18n.T("cluster.error_open"), path, err)
	}
	defer f.Close()
	return parse(f)
}

// parse tokenizes the roster. Node names carry no inherent meaning here;
// they are handed to the transport verbatim.
func parse(r io.Reader) ([]string, error) {
	var nodes []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		nodes = append(nodes, strings.Fields(line)...)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return nodes, nil
}
