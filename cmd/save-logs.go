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
	"os"

	"github.com/spf13/cobra"

	"github.com/rhinstaller/anaconda-boot/cmd/config"
	"github.com/rhinstaller/anaconda-boot/pkg/constants"
	"github.com/rhinstaller/anaconda-boot/pkg/postinstall"
)

func NewSaveLogsCmd(root *cobra.Command, addCheckRoot bool) *cobra.Command {
	keys := config.FlagKeys{
		"install-path": "post-install.install-path",
		"kickstart":    "post-install.kickstart",
		"journal":      "post-install.journal",
		"tmp-dir":      "tmp-dir",
	}
	c := &cobra.Command{
		Use:     "save-logs",
		Short:   "Copies installer logs and the input kickstart into the installed system",
		Args:    cobra.ExactArgs(0),
		PreRunE: checkRootPreRun(addCheckRoot),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := readConfig(cmd, keys)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			if cfg.PostInstall.InstallPath == "" {
				cfg.PostInstall.InstallPath = os.Getenv(constants.InstallPathEnv)
			}
			err = postinstall.SaveLogs(cfg)
			if err != nil {
				cfg.Logger.Errorf("failed saving installer logs: %v", err)
			}
			return err
		},
	}
	root.AddCommand(c)
	c.Flags().String("install-path", "", "Root of the installed system, defaults to $"+constants.InstallPathEnv)
	c.Flags().String("kickstart", "", "Input kickstart to preserve")
	c.Flags().Bool("journal", true, "Save the journal of the current boot")
	c.Flags().String("tmp-dir", "", "Directory holding the installer logs")
	return c
}

// register the subcommand into rootCmd
var _ = NewSaveLogsCmd(rootCmd, true)
