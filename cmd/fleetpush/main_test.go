// Copyright (c) 2025 ToeiRei
// Fleetpush - SSH fleet file deployment
// This source code is licensed under the MIT license found in the LICENSE file.

package main

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/ssh"

	"github.com/toeirei/fleetpush/internal/db"
	"github.com/toeirei/fleetpush/internal/i18n"
	"github.com/toeirei/fleetpush/internal/testutil"
	"github.com/toeirei/fleetpush/internal/transport"
)

// setupTestDB initializes an in-memory SQLite database for isolated testing.
// "cache=shared" is crucial so every connection in the process sees the same
// in-memory DB.
func setupTestDB(t *testing.T) {
	t.Helper()

	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"

	i18n.Init("en")
	if err := db.InitDB("sqlite", dsn); err != nil {
		t.Fatalf("Failed to initialize test database: %v", err)
	}
}

// executeCommandErr runs a fresh root command with the given arguments and
// captures stdout. The error is handed back for tests that expect failure.
func executeCommandErr(t *testing.T, args ...string) (string, error) {
	t.Helper()

	// Redirect stdout to a buffer
	oldOut := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w
	defer func() {
		os.Stdout = oldOut
	}()

	// Create a new root command for each test to ensure isolation
	root := newRootCmd()
	root.SetArgs(args)
	err := root.Execute()

	w.Close()
	var buf bytes.Buffer
	if _, copyErr := io.Copy(&buf, r); copyErr != nil {
		t.Fatalf("failed to read command output: %v", copyErr)
	}
	return buf.String(), err
}

// executeCommand is executeCommandErr for the common case where the command
// must succeed.
func executeCommand(t *testing.T, args ...string) string {
	t.Helper()
	out, err := executeCommandErr(t, args...)
	if err != nil {
		t.Fatalf("command execution failed: %v", err)
	}
	return out
}

// writeTestKey writes a throwaway unencrypted ed25519 identity file.
func writeTestKey(t *testing.T) string {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("ed25519.GenerateKey failed: %v", err)
	}
	block, err := ssh.MarshalPrivateKey(priv, "test key")
	if err != nil {
		t.Fatalf("failed to marshal private key: %v", err)
	}

	path := filepath.Join(t.TempDir(), "deploy_key")
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0600); err != nil {
		t.Fatalf("failed to write key file: %v", err)
	}
	return path
}

// writeRoster writes a cluster roster file with the given content.
func writeRoster(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "cluster.txt")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write roster file: %v", err)
	}
	return path
}

// writeSource writes a small file to act as the push payload.
func writeSource(t *testing.T, name string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("key = value\n"), 0644); err != nil {
		t.Fatalf("failed to write source file: %v", err)
	}
	return path
}

// injectFakeTransport swaps the SSH layer for an in-memory fake for the
// duration of the test.
func injectFakeTransport(t *testing.T) *testutil.FakeTransport {
	t.Helper()

	fake := testutil.NewFakeTransport()
	orig := newTransport
	newTransport = func(cfg transport.Config) (nodeTransport, error) {
		return fake, nil
	}
	t.Cleanup(func() { newTransport = orig })
	return fake
}

func TestPushCmd(t *testing.T) {
	// 1. Setup
	setupTestDB(t)
	fake := injectFakeTransport(t)

	roster := writeRoster(t, "h1\nh2\n")
	source := writeSource(t, "app.conf")
	auditFile := filepath.Join(t.TempDir(), "deploy.log")

	// 2. Execute
	output := executeCommand(t, "push", source, "/etc/app/app.conf",
		"--cluster.file", roster,
		"--ssh.identity_file", writeTestKey(t),
		"--audit.file", auditFile,
	)

	// 3. Assertions
	t.Run("console stays quiet on success", func(t *testing.T) {
		if output != "" {
			t.Errorf("Expected no console output for a successful push, got:\n%s", output)
		}
	})

	t.Run("nodes are processed strictly in roster order", func(t *testing.T) {
		want := []string{"copy h1", "run h1", "copy h2", "run h2"}
		if len(fake.Calls) != len(want) {
			t.Fatalf("Expected calls %v, got %v", want, fake.Calls)
		}
		for i, call := range want {
			if fake.Calls[i] != call {
				t.Errorf("Call %d: expected %q, got %q", i, call, fake.Calls[i])
			}
		}
	})

	t.Run("placement uses the quoted move command", func(t *testing.T) {
		want := "mv -f -- 'app.conf' '/etc/app/app.conf'"
		if fake.Commands["h1"] != want {
			t.Errorf("Expected placement command %q, got %q", want, fake.Commands["h1"])
		}
	})

	t.Run("deployment log records both phases per node", func(t *testing.T) {
		data, err := os.ReadFile(auditFile)
		if err != nil {
			t.Fatalf("Failed to read deployment log: %v", err)
		}
		content := string(data)
		for _, line := range []string{
			"INFO - transfer succeeded for node h1",
			"INFO - placement succeeded for node h1",
			"INFO - transfer succeeded for node h2",
			"INFO - placement succeeded for node h2",
		} {
			if !strings.Contains(content, line) {
				t.Errorf("Expected deployment log to contain %q. Log:\n%s", line, content)
			}
		}
		if h1 := strings.Index(content, "for node h1"); h1 > strings.Index(content, "for node h2") {
			t.Errorf("Expected h1 lines before h2 lines. Log:\n%s", content)
		}
	})

	t.Run("history store records the finished run", func(t *testing.T) {
		runs, err := db.ListRuns(10)
		if err != nil {
			t.Fatalf("Failed to list runs: %v", err)
		}
		if len(runs) != 1 {
			t.Fatalf("Expected 1 recorded run, got %d", len(runs))
		}
		run := runs[0]
		if run.Command != "push" || run.NodeCount != 2 {
			t.Errorf("Unexpected run record: %+v", run)
		}
		if run.FinishedAt == nil {
			t.Error("Expected the run to be marked finished")
		}
		outcomes, err := db.OutcomesForRun(run.ID)
		if err != nil {
			t.Fatalf("Failed to load outcomes: %v", err)
		}
		if len(outcomes) != 4 {
			t.Errorf("Expected 4 recorded outcomes, got %d", len(outcomes))
		}
	})
}

func TestPushCmdNodeFailureContinuesRun(t *testing.T) {
	setupTestDB(t)
	fake := injectFakeTransport(t)
	fake.TransferErr["h1"] = os.ErrDeadlineExceeded
	fake.PlacementResult["h2"] = transport.Result{ExitCode: 1, Detail: "mv: permission denied"}

	roster := writeRoster(t, "h1\nh2\nh3\n")
	source := writeSource(t, "app.conf")
	auditFile := filepath.Join(t.TempDir(), "deploy.log")

	_, err := executeCommandErr(t, "push", source, "/etc/app/app.conf",
		"--cluster.file", roster,
		"--ssh.identity_file", writeTestKey(t),
		"--audit.file", auditFile,
	)

	t.Run("node failures do not fail the command", func(t *testing.T) {
		if err != nil {
			t.Fatalf("Expected exit success despite node failures, got: %v", err)
		}
	})

	t.Run("failed transfer skips placement and moves on", func(t *testing.T) {
		want := []string{"copy h1", "copy h2", "run h2", "copy h3", "run h3"}
		if strings.Join(fake.Calls, ",") != strings.Join(want, ",") {
			t.Errorf("Expected calls %v, got %v", want, fake.Calls)
		}
	})

	t.Run("deployment log carries the failures and the successes", func(t *testing.T) {
		data, err := os.ReadFile(auditFile)
		if err != nil {
			t.Fatalf("Failed to read deployment log: %v", err)
		}
		content := string(data)
		for _, line := range []string{
			"ERROR - transfer failed for node h1",
			"ERROR - placement failed for node h2: mv: permission denied",
			"INFO - placement succeeded for node h3",
		} {
			if !strings.Contains(content, line) {
				t.Errorf("Expected deployment log to contain %q. Log:\n%s", line, content)
			}
		}
	})
}

func TestPushCmdMissingSourceFile(t *testing.T) {
	setupTestDB(t)
	fake := injectFakeTransport(t)

	roster := writeRoster(t, "h1\n")
	auditFile := filepath.Join(t.TempDir(), "deploy.log")

	_, err := executeCommandErr(t, "push", filepath.Join(t.TempDir(), "missing.conf"), "/etc/app/app.conf",
		"--cluster.file", roster,
		"--ssh.identity_file", writeTestKey(t),
		"--audit.file", auditFile,
	)

	if err == nil {
		t.Fatal("Expected an error for a missing source file")
	}
	if !strings.Contains(err.Error(), "source file") {
		t.Errorf("Expected a source file error, got: %v", err)
	}
	if len(fake.Calls) != 0 {
		t.Errorf("Expected no node contact, got calls: %v", fake.Calls)
	}
	if _, statErr := os.Stat(auditFile); !os.IsNotExist(statErr) {
		t.Error("Expected no deployment log to be written for a configuration error")
	}
}

func TestPushCmdMissingRosterFile(t *testing.T) {
	setupTestDB(t)
	fake := injectFakeTransport(t)

	_, err := executeCommandErr(t, "push", writeSource(t, "app.conf"), "/etc/app/app.conf",
		"--cluster.file", filepath.Join(t.TempDir(), "missing.txt"),
		"--ssh.identity_file", writeTestKey(t),
		"--audit.file", filepath.Join(t.TempDir(), "deploy.log"),
	)

	if err == nil {
		t.Fatal("Expected an error for a missing roster file")
	}
	if !strings.Contains(err.Error(), "cluster file") {
		t.Errorf("Expected a cluster file error, got: %v", err)
	}
	if len(fake.Calls) != 0 {
		t.Errorf("Expected no node contact, got calls: %v", fake.Calls)
	}
}

func TestPushCmdMissingIdentityFile(t *testing.T) {
	setupTestDB(t)
	fake := injectFakeTransport(t)

	_, err := executeCommandErr(t, "push", writeSource(t, "app.conf"), "/etc/app/app.conf",
		"--cluster.file", writeRoster(t, "h1\n"),
		"--ssh.identity_file", filepath.Join(t.TempDir(), "missing_key"),
		"--audit.file", filepath.Join(t.TempDir(), "deploy.log"),
	)

	if err == nil {
		t.Fatal("Expected an error for a missing identity file")
	}
	if !strings.Contains(err.Error(), "identity file") {
		t.Errorf("Expected an identity file error, got: %v", err)
	}
	if len(fake.Calls) != 0 {
		t.Errorf("Expected no node contact, got calls: %v", fake.Calls)
	}
}

func TestPushCmdEmptyRoster(t *testing.T) {
	setupTestDB(t)
	fake := injectFakeTransport(t)

	roster := writeRoster(t, "# staging fleet\n\n   \n")
	auditFile := filepath.Join(t.TempDir(), "deploy.log")

	output := executeCommand(t, "push", writeSource(t, "app.conf"), "/etc/app/app.conf",
		"--cluster.file", roster,
		"--ssh.identity_file", writeTestKey(t),
		"--audit.file", auditFile,
	)

	if output != "" {
		t.Errorf("Expected no output for an empty roster, got:\n%s", output)
	}
	if len(fake.Calls) != 0 {
		t.Errorf("Expected no node contact for an empty roster, got calls: %v", fake.Calls)
	}
	data, err := os.ReadFile(auditFile)
	if err != nil {
		t.Fatalf("Expected the deployment log to be created: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("Expected an empty deployment log, got:\n%s", string(data))
	}
}

func TestNodesCmd(t *testing.T) {
	setupTestDB(t)

	roster := writeRoster(t, "# fleet\nh1\nh2 h3\n\nh1\n")
	output := executeCommand(t, "nodes", "--cluster.file", roster)

	want := "h1\nh2\nh3\nh1\n"
	if output != want {
		t.Errorf("Expected roster listing %q, got %q", want, output)
	}
}

func TestVersionCmd(t *testing.T) {
	setupTestDB(t)

	output := executeCommand(t, "version")
	if !strings.Contains(output, "fleetpush dev") {
		t.Errorf("Expected version output to name the binary and version, got: %q", output)
	}
}
