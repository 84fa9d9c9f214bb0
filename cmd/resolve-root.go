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
	"github.com/rhinstaller/anaconda-boot/pkg/rootdev"
)

func NewResolveRootCmd(root *cobra.Command, addCheckRoot bool) *cobra.Command {
	keys := config.FlagKeys{
		"device":   "root.device",
		"timeout":  "root.timeout",
		"env-file": "root.env-file",
	}
	c := &cobra.Command{
		Use:     "resolve-root",
		Short:   "Sets the installer root from the boot command line",
		Args:    cobra.ExactArgs(0),
		PreRunE: checkRootPreRun(addCheckRoot),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := readConfig(cmd, keys)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
				cmdArgs, err := action.ReadCmdline(cfg)
				if err != nil {
					return err
				}
				out, err := yaml.Marshal(rootdev.Resolve(cmdArgs))
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(out)
				return err
			}

			_, err = action.ResolveRootRun(cmd.Context(), cfg)
			if err != nil {
				cfg.Logger.Errorf("root resolution failed: %v", err)
			}
			return err
		},
	}
	root.AddCommand(c)
	c.Flags().Bool("dry-run", false, "Print the resolved root without exporting it")
	c.Flags().String("device", "", "Root device node to wait for")
	c.Flags().Duration("timeout", 0, "Time to wait for the root device, 0 waits forever")
	c.Flags().String("env-file", "", "File the resolved root is exported to")
	addPathFlags(c, keys)
	return c
}

// register the subcommand into rootCmd
var _ = NewResolveRootCmd(rootCmd, true)
