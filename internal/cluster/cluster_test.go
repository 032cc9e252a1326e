// Copyright (c) 2025 ToeiRei
// Fleetpush - SSH fleet file deployment
// This source code is licensed under the MIT license found in the LICENSE file.

package cluster

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeRoster(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cluster.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write roster: %v", err)
	}
	return path
}

func TestLoadRoster(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{
			name:    "one per line",
			content: "h1\nh2\nh3\n",
			want:    []string{"h1", "h2", "h3"},
		},
		{
			name:    "multiple per line",
			content: "h1 h2\th3\n",
			want:    []string{"h1", "h2", "h3"},
		},
		{
			name:    "comments and blanks skipped",
			content: "# masters\nnn1\n\n  # workers\ndn1 dn2\n",
			want:    []string{"nn1", "dn1", "dn2"},
		},
		{
			name:    "trailing comments stripped",
			content: "h1 # primary\nh2 h3 # spares\n",
			want:    []string{"h1", "h2", "h3"},
		},
		{
			name:    "duplicates kept in order",
			content: "h1\nh2\nh1\n",
			want:    []string{"h1", "h2", "h1"},
		},
		{
			name:    "no trailing newline",
			content: "h1 h2",
			want:    []string{"h1", "h2"},
		},
		{
			name:    "empty file",
			content: "",
			want:    nil,
		},
		{
			name:    "only comments",
			content: "# nothing here\n#h1\n",
			want:    nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(writeRoster(t, tt.content))
			if err != nil {
				t.Fatalf("Load returned error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Load = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.txt"))
	if err == nil {
		t.Fatal("expected error for missing roster file")
	}
}
