// Copyright (c) 2025 ToeiRei
// Fleetpush - SSH fleet file deployment
// This source code is licensed under the MIT license found in the LICENSE file.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/toeirei/fleetpush/internal/logging"
)

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Dump debug information about config, env, flags and settings",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("--- FLEETPUSH DEBUG ---")
		// Config file used
		fmt.Printf("Config file used: %s\n", viper.ConfigFileUsed())

		// The configuration the commands actually run with
		b, err := json.MarshalIndent(appConfig, "", "  ")
		if err != nil {
			logging.Errorf("could not marshal resolved config: %v", err)
		} else {
			fmt.Println("-- resolved config --")
			fmt.Println(string(b))
		}

		// Flags
		fmt.Println("-- flags --")
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			fmt.Printf("%s = %s\n", f.Name, f.Value.String())
		})

		// Environment variables of interest
		fmt.Println("-- environment (FLEETPUSH*, CONFIG*) --")
		for _, e := range os.Environ() {
			if strings.HasPrefix(e, "FLEETPUSH") || strings.HasPrefix(e, "CONFIG") {
				fmt.Println(e)
			}
		}

		fmt.Printf("PWD=%s\n", os.Getenv("PWD"))
		fmt.Println("--- END DEBUG ---")
	},
}
