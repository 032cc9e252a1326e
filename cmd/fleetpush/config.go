package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/toeirei/fleetpush/internal/config"
	"github.com/toeirei/fleetpush/internal/i18n"
)

// configCmd groups configuration management.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: i18n.T("config.short"),
}

// configInitCmd writes a starter configuration file with the currently
// resolved values, so operators have something concrete to edit.
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: i18n.T("config.init_short"),
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

func init() {
	configInitCmd.Flags().Bool("system", false, i18n.T("flags.system"))
	configInitCmd.Flags().Bool("force", false, i18n.T("flags.force"))
	configCmd.AddCommand(configInitCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	system, _ := cmd.Flags().GetBool("system")
	force, _ := cmd.Flags().GetBool("force")

	path, err := config.GetConfigPath(system)
	if err != nil {
		return fmt.Errorf(i18n.T("config.error_write"), err)
	}
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf(i18n.T("config.init_exists"), path)
		}
	}

	if err := config.WriteConfigTo(&appConfig, path); err != nil {
		return fmt.Errorf(i18n.T("config.error_write"), err)
	}
	fmt.Println(i18n.T("config.init_success", path))
	recordAction("INIT", path)
	return nil
}
