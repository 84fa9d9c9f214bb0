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

func NewGenRulesCmd(root *cobra.Command, addCheckRoot bool) *cobra.Command {
	keys := config.FlagKeys{
		"rules-file": "rules-file",
		"oem-spec":   "driverdisk.oem-spec",
		"timeout":    "driverdisk.timeout",
	}
	c := &cobra.Command{
		Use:   "genrules",
		Short: "Writes the udev rules that load requested driver disks",
		Long: "Waits for network and interactive driver disks to be handled and writes\n" +
			"one udev rule per requested disk plus the OEM driver disk.",
		Args:    cobra.ExactArgs(0),
		PreRunE: checkRootPreRun(addCheckRoot),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := readConfig(cmd, keys)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			if noWait, _ := cmd.Flags().GetBool("no-wait"); !noWait {
				err = action.WaitForDriverDisksRun(cmd.Context(), cfg)
				if err != nil {
					cfg.Logger.Errorf("%v", err)
					return err
				}
			}
			_, err = action.GenRulesRun(cfg)
			if err != nil {
				cfg.Logger.Errorf("failed writing driver disk rules: %v", err)
			}
			return err
		},
	}
	root.AddCommand(c)
	c.Flags().Bool("no-wait", false, "Do not wait for pending driver disks")
	c.Flags().String("rules-file", "", "Udev rules file to write")
	c.Flags().String("oem-spec", "", "Disk spec of the OEM driver disk")
	c.Flags().Duration("timeout", 0, "Time to wait for driver disks, 0 waits forever")
	addPathFlags(c, keys)
	return c
}

// register the subcommand into rootCmd
var _ = NewGenRulesCmd(rootCmd, true)
