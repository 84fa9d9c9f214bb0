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
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rhinstaller/anaconda-boot/cmd/config"
	"github.com/rhinstaller/anaconda-boot/pkg/constants"
	v1 "github.com/rhinstaller/anaconda-boot/pkg/types/v1"
)

// UsageError is a wrong invocation, the process exits with status 2
type UsageError struct {
	msg string
}

func (e UsageError) Error() string {
	return e.msg
}

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   constants.ProgName,
		Short: "Anaconda boot hooks",
		Long: "Boot time helpers of the Anaconda installer: installer root resolution,\n" +
			"driver disk rules and updates, and installer log preservation.",
	}
	cmd.PersistentFlags().Bool("debug", false, "Enable debug output")
	cmd.PersistentFlags().String("config-dir", constants.ConfigDir, "Set config dir")
	cmd.PersistentFlags().String("logfile", "", "Set logfile")
	cmd.PersistentFlags().Bool("quiet", false, "Do not output to stdout")
	return cmd
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = NewRootCmd()

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		var uerr UsageError
		if errors.As(err, &uerr) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// CheckRoot is a helper to return on PreRunE, so we can add it to commands that require root
func CheckRoot() error {
	if os.Geteuid() != 0 {
		return errors.New("this command requires root privileges")
	}
	return nil
}

// checkRootPreRun returns the PreRunE of commands that require root when asked to
func checkRootPreRun(addCheckRoot bool) func(*cobra.Command, []string) error {
	return func(_ *cobra.Command, _ []string) error {
		if addCheckRoot {
			return CheckRoot()
		}
		return nil
	}
}

// addPathFlags adds the flags locating the boot command line and the
// request files
func addPathFlags(c *cobra.Command, keys config.FlagKeys) {
	c.Flags().String("cmdline-path", "", "Kernel command line file")
	c.Flags().String("cmdline-dir", "", "Directory of additional command line snippets")
	c.Flags().String("tmp-dir", "", "Directory of the driver disk request files")
	for _, k := range []string{"cmdline-path", "cmdline-dir", "tmp-dir"} {
		keys[k] = k
	}
}

// readConfig loads the run configuration from the config dir and the flags of c
func readConfig(c *cobra.Command, keys config.FlagKeys) (*v1.RunConfig, error) {
	configDir, _ := c.Flags().GetString("config-dir")
	cfg, err := config.ReadConfigRun(configDir, c.Flags(), keys)
	if err != nil {
		return nil, fmt.Errorf("error reading config: %w", err)
	}
	return cfg, nil
}
