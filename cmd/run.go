/*
Copyright © 2023 The anaconda-boot Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/rhinstaller/anaconda-boot/cmd/config"
	"github.com/rhinstaller/anaconda-boot/pkg/action"
)

// NewRunCmd returns a new instance of the run subcommand and appends it to
// the root command. requireRoot is to initiate it with or without the CheckRoot
// pre-run check. This method is mostly used for testing purposes.
func NewRunCmd(root *cobra.Command, addCheckRoot bool) *cobra.Command {
	keys := config.FlagKeys{
		"rules-file": "rules-file",
		"timeout":    "root.timeout",
		"dd-timeout": "driverdisk.timeout",
	}
	c := &cobra.Command{
		Use:     "run",
		Short:   "Runs every boot hook in order",
		Args:    cobra.ExactArgs(0),
		PreRunE: checkRootPreRun(addCheckRoot),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := readConfig(cmd, keys)
			if err != nil {
				return err
			}
			// Set this after parsing of the flags, so it fails on parsing and prints usage properly
			cmd.SilenceUsage = true

			hooks, err := action.NewHooksRun(cfg)
			if err != nil {
				cfg.Logger.Errorf("failed building boot hooks: %v", err)
				return err
			}
			if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
				return hooks.WriteDAG(cmd.OutOrStdout())
			}
			err = hooks.Run(cmd.Context())
			if err != nil {
				cfg.Logger.Errorf("boot hooks failed: %v", err)
				return err
			}
			return nil
		},
	}
	root.AddCommand(c)
	c.Flags().Bool("dry-run", false, "Print the hooks in execution order without running them")
	c.Flags().String("rules-file", "", "Driver disk udev rules file to write")
	c.Flags().Duration("timeout", 0, "Time to wait for the root device, 0 waits forever")
	c.Flags().Duration("dd-timeout", 0, "Time to wait for driver disks, 0 waits forever")
	addPathFlags(c, keys)
	return c
}

// register the subcommand into rootCmd
var _ = NewRunCmd(rootCmd, true)
