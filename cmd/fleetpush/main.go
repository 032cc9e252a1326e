// Copyright (c) 2025 ToeiRei
// Fleetpush - SSH fleet file deployment
// This source code is licensed under the MIT license found in the LICENSE file.

// main.go wires up the fleetpush command-line interface with Cobra. The root
// command resolves configuration and shared services for every subcommand;
// push is the core operation, the rest are roster, history and config
// management around it.

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/ssh"
	"golang.org/x/term"

	"github.com/toeirei/fleetpush/buildvars"
	"github.com/toeirei/fleetpush/internal/audit"
	"github.com/toeirei/fleetpush/internal/cluster"
	"github.com/toeirei/fleetpush/internal/config"
	"github.com/toeirei/fleetpush/internal/db"
	"github.com/toeirei/fleetpush/internal/i18n"
	"github.com/toeirei/fleetpush/internal/logging"
	"github.com/toeirei/fleetpush/internal/model"
	"github.com/toeirei/fleetpush/internal/pipeline"
	"github.com/toeirei/fleetpush/internal/security"
	"github.com/toeirei/fleetpush/internal/sshkey"
	"github.com/toeirei/fleetpush/internal/state"
	"github.com/toeirei/fleetpush/internal/transport"
	"github.com/toeirei/fleetpush/internal/tui"
)

var cfgFile string

// appConfig holds the configuration resolved by setupRuntime for the
// executing command.
var appConfig config.Config

// dbInitErr remembers why the history store could not be opened, so the
// commands that need one can report the actual cause.
var dbInitErr error

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// Cobra has already printed the error.
		os.Exit(1)
	}
}

// newRootCmd builds a fresh root command. Tests call this directly to get
// isolated instances.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "fleetpush",
		Short:             i18n.T("cli.short"),
		Long:              i18n.T("cli.long"),
		Version:           buildvars.VersionOrDefault("dev"),
		PersistentPreRunE: setupRuntime,
	}

	// Persistent flags share their names with the config keys so viper can
	// bind the whole set at once.
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is fleetpush.yaml in the user config dir)")
	cmd.PersistentFlags().Bool("debug", false, i18n.T("flags.debug"))
	cmd.PersistentFlags().String("language", "en", i18n.T("flags.lang"))
	cmd.PersistentFlags().String("cluster.file", "./cluster.txt", i18n.T("flags.cluster_file"))
	cmd.PersistentFlags().String("ssh.user", "deploy", i18n.T("flags.user"))
	cmd.PersistentFlags().String("ssh.identity_file", "./deploy_key", i18n.T("flags.identity"))
	cmd.PersistentFlags().Int("ssh.port", 22, i18n.T("flags.port"))
	cmd.PersistentFlags().String("ssh.host_key_policy", transport.PolicyAcceptAny, i18n.T("flags.host_key_policy"))
	cmd.PersistentFlags().String("audit.file", "./deploy.log", i18n.T("flags.audit_file"))
	cmd.PersistentFlags().String("database.type", "sqlite", i18n.T("flags.db_type"))
	cmd.PersistentFlags().String("database.dsn", "./fleetpush.db", i18n.T("flags.db_dsn"))

	cmd.AddCommand(pushCmd)
	cmd.AddCommand(checkCmd)
	cmd.AddCommand(nodesCmd)
	cmd.AddCommand(historyCmd)
	cmd.AddCommand(uiCmd)
	cmd.AddCommand(configCmd)
	cmd.AddCommand(versionCmd)
	cmd.AddCommand(debugCmd)

	return cmd
}

// setupRuntime resolves the configuration and brings up the services every
// command relies on. The history store is opened best effort: the append-only
// deployment log is the contractual record, and a missing database must never
// keep a push from running.
func setupRuntime(cmd *cobra.Command, args []string) error {
	var err error
	appConfig, err = config.LoadConfig[config.Config](cmd, config.Defaults(), &cfgFile)
	if err != nil {
		return fmt.Errorf(i18n.T("cli.error_load_config"), err)
	}

	// Blanked-out criticals in a hand-edited config file fall back to the
	// shipped defaults.
	if appConfig.Language == "" {
		appConfig.Language = "en"
	}
	if appConfig.Database.Type == "" {
		appConfig.Database.Type = "sqlite"
	}
	if appConfig.Database.Dsn == "" {
		appConfig.Database.Dsn = "./fleetpush.db"
	}

	i18n.Init(appConfig.Language)
	logging.SetDebug(appConfig.Debug)
	db.SetDebug(appConfig.Debug)

	primeGlobalViper()

	if !db.IsInitialized() {
		if err := db.InitDB(appConfig.Database.Type, appConfig.Database.Dsn); err != nil {
			dbInitErr = err
			logging.Debugf("history store unavailable: %v", err)
		}
	}
	return nil
}

// primeGlobalViper points the package-global viper at the resolved config
// file so settings changed inside the TUI are saved to the right place.
func primeGlobalViper() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("fleetpush")
		viper.SetConfigType("yaml")
		if path, err := config.GetConfigPath(false); err == nil {
			_ = os.MkdirAll(filepath.Dir(path), 0755)
			viper.AddConfigPath(filepath.Dir(path))
		}
		viper.AddConfigPath(".")
	}
	_ = viper.ReadInConfig()
}

// nodeTransport is the slice of the SSH layer the commands drive.
type nodeTransport interface {
	pipeline.Transport
	Probe(node string) error
}

// newTransport builds the SSH layer for push and check. Tests swap it out to
// keep the suite off the network.
var newTransport = func(cfg transport.Config) (nodeTransport, error) {
	return transport.NewDialer(cfg)
}

// buildTransport assembles the dialer from the resolved configuration. The
// identity file is loaded here so a bad key fails the command before any
// node is contacted.
func buildTransport() (nodeTransport, error) {
	signer, err := loadSigner(appConfig.SSH.IdentityFile)
	if err != nil {
		return nil, err
	}

	hostKeys, err := transport.HostKeyCallbackFor(appConfig.SSH.HostKeyPolicy)
	if err != nil {
		return nil, err
	}

	cfg := transport.DefaultConfig()
	cfg.User = appConfig.SSH.User
	cfg.Port = appConfig.SSH.Port
	cfg.Signer = signer
	cfg.HostKeyCallback = hostKeys
	if cfg.ConnectTimeout, err = timeoutFor(appConfig.SSH.ConnectTimeout, cfg.ConnectTimeout); err != nil {
		return nil, err
	}
	if cfg.CommandTimeout, err = timeoutFor(appConfig.SSH.CommandTimeout, cfg.CommandTimeout); err != nil {
		return nil, err
	}
	if cfg.TransferTimeout, err = timeoutFor(appConfig.SSH.TransferTimeout, cfg.TransferTimeout); err != nil {
		return nil, err
	}
	return newTransport(cfg)
}

// timeoutFor parses a configured duration, keeping the fallback for an empty
// value.
func timeoutFor(value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", value, err)
	}
	return d, nil
}

// loadSigner parses the identity file, consulting the passphrase mailbox for
// encrypted keys and falling back to an interactive prompt when a terminal
// is attached.
func loadSigner(path string) (ssh.Signer, error) {
	cached := security.FromBytes(state.PassphraseCache.Get())
	defer cached.Zero()

	signer, err := sshkey.LoadSigner(path, cached.Bytes())
	if err == nil {
		return signer, nil
	}
	if !errors.Is(err, sshkey.ErrPassphraseRequired) {
		return nil, err
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, fmt.Errorf(i18n.T("sshkey.error_encrypted"), path)
	}
	fmt.Print(i18n.T("sshkey.prompt_passphrase", path))
	entered, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return nil, fmt.Errorf("could not read passphrase: %w", err)
	}
	secret := security.FromBytes(entered)
	defer secret.Zero()

	signer, err = sshkey.LoadSigner(path, secret.Bytes())
	if err != nil {
		return nil, err
	}
	state.PassphraseCache.Set(secret.Bytes())
	return signer, nil
}

// pushCmd is the core operation: stage the file in each node's home over
// SFTP, then move it into the target path with sudo. Per-node results go to
// the deployment log only; the console stays quiet unless the configuration
// itself is unusable.
var pushCmd = &cobra.Command{
	Use:   "push <source-file> <target-path>",
	Short: i18n.T("push.short"),
	Long:  i18n.T("push.long"),
	Args:  cobra.ExactArgs(2),
	RunE:  runPush,
}

func runPush(cmd *cobra.Command, args []string) error {
	req := model.NewDeploymentRequest(args[0], args[1])
	if _, err := os.Stat(req.SourcePath); err != nil {
		return fmt.Errorf(i18n.T("push.error_source"), req.SourcePath, err)
	}

	nodes, err := cluster.Load(appConfig.Cluster.File)
	if err != nil {
		return err
	}

	tr, err := buildTransport()
	if err != nil {
		return err
	}

	fileLog, err := audit.NewFileRecorder(appConfig.Audit.File)
	if err != nil {
		return err
	}
	defer fileLog.Close()

	var recorder audit.Recorder = fileLog
	var runID int64
	if db.IsInitialized() {
		id, err := db.BeginRun("push", req.SourcePath, req.TargetPath, len(nodes))
		if err != nil {
			logging.Debugf("history store rejected run: %v", err)
		} else {
			runID = id
			recorder = audit.NewMultiRecorder(fileLog, audit.NewStoreRecorder(historyStore{}, runID))
		}
	}

	pipe, err := pipeline.New(tr, recorder)
	if err != nil {
		return err
	}

	summary, err := pipe.Run(nodes, req)
	if err != nil {
		// Only a broken deployment log lands here; the trail is the contract.
		return err
	}

	if runID != 0 {
		if err := db.FinishRun(runID); err != nil {
			logging.Debugf("history store: could not finish run %d: %v", runID, err)
		}
	}
	recordAction("PUSH", fmt.Sprintf("source: %s, target: %s, nodes: %d, failed: %d",
		req.SourcePath, req.TargetPath, len(nodes), summary.Failures()))
	return nil
}

// nodesCmd prints the parsed roster in file order, duplicates included.
var nodesCmd = &cobra.Command{
	Use:   "nodes",
	Short: i18n.T("nodes.short"),
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		nodes, err := cluster.Load(appConfig.Cluster.File)
		if err != nil {
			return err
		}
		for _, node := range nodes {
			fmt.Println(node)
		}
		return nil
	},
}

// uiCmd opens the interactive history browser.
var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: i18n.T("ui.short"),
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireHistoryStore(); err != nil {
			return err
		}
		tui.Run()
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: i18n.T("version.short"),
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("fleetpush " + buildvars.VersionOrDefault("dev"))
	},
}
