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
	"gopkg.in/yaml.v3"

	"github.com/rhinstaller/anaconda-boot/cmd/config"
	"github.com/rhinstaller/anaconda-boot/pkg/action"
)

func NewCmdlineCmd(root *cobra.Command) *cobra.Command {
	keys := config.FlagKeys{}
	c := &cobra.Command{
		Use:   "cmdline",
		Short: "Prints the boot arguments the hooks act on",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := readConfig(cmd, keys)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			cmdArgs, err := action.ReadCmdline(cfg)
			if err != nil {
				cfg.Logger.Errorf("failed reading boot arguments: %v", err)
				return err
			}
			out, err := yaml.Marshal(cmdArgs)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	root.AddCommand(c)
	addPathFlags(c, keys)
	return c
}

// register the subcommand into rootCmd
var _ = NewCmdlineCmd(rootCmd)
