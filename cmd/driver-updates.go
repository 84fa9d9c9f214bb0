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
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rhinstaller/anaconda-boot/cmd/config"
	"github.com/rhinstaller/anaconda-boot/pkg/driverupdate"
)

const driverUpdatesUsage = `usage: driver-updates --disk DISKSTR DEVNODE
       driver-updates --net URL LOCALFILE
       driver-updates --interactive`

func NewDriverUpdatesCmd(root *cobra.Command, addCheckRoot bool) *cobra.Command {
	keys := config.FlagKeys{
		"anaconda-version": "driver-updates.anaconda-version",
		"syslog":           "driver-updates.syslog",
	}
	c := &cobra.Command{
		Use:   "driver-updates {--disk DISKSTR DEVNODE | --net URL LOCALFILE | --interactive}",
		Short: "Loads drivers from a driver update disk",
		Long: "Extracts the driver rpms of a driver update disk, loads the matching\n" +
			"kernel modules and keeps the repositories for the installer.",
		PreRunE: checkRootPreRun(addCheckRoot),
		RunE: func(cmd *cobra.Command, args []string) error {
			disk, _ := cmd.Flags().GetBool("disk")
			net, _ := cmd.Flags().GetBool("net")
			interactive, _ := cmd.Flags().GetBool("interactive")

			var run func(h *driverupdate.Handler) error
			switch {
			case disk && !net && !interactive && len(args) == 2:
				run = func(h *driverupdate.Handler) error { return h.HandleDisk("--disk", args[0], args[1]) }
			case net && !disk && !interactive && len(args) == 2:
				run = func(h *driverupdate.Handler) error { return h.HandleNet(args[0], args[1]) }
			case interactive && !disk && !net && len(args) == 0:
				run = func(h *driverupdate.Handler) error { return h.Interactive(os.Stdin, cmd.OutOrStdout()) }
			default:
				cmd.SilenceUsage = true
				fmt.Fprintln(cmd.ErrOrStderr(), driverUpdatesUsage)
				return UsageError{msg: "invalid driver-updates invocation"}
			}

			cfg, err := readConfig(cmd, keys)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true
			driverupdate.SetupLogger(cfg.Logger, cfg.DriverUpdate.Syslog)

			err = run(driverupdate.NewHandler(cfg))
			if err != nil {
				cfg.Logger.Errorf("%v", err)
			}
			return err
		},
	}
	root.AddCommand(c)
	c.Flags().Bool("disk", false, "Handle the driver disk DISKSTR found at DEVNODE")
	c.Flags().Bool("net", false, "Handle the driver disk downloaded from URL to LOCALFILE")
	c.Flags().Bool("interactive", false, "Choose driver disks and drivers from menus")
	c.Flags().String("anaconda-version", "", "Installer version drivers must be compatible with")
	c.Flags().Bool("syslog", true, "Also send messages to the system log")
	c.Flags().String("tmp-dir", "", "Directory of the driver disk request files")
	keys["tmp-dir"] = "tmp-dir"
	return c
}

// register the subcommand into rootCmd
var _ = NewDriverUpdatesCmd(rootCmd, true)
