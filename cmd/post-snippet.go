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

	"github.com/spf13/cobra"

	"github.com/rhinstaller/anaconda-boot/pkg/constants"
	"github.com/rhinstaller/anaconda-boot/pkg/postinstall"
)

func NewPostSnippetCmd(root *cobra.Command) *cobra.Command {
	c := &cobra.Command{
		Use:   "post-snippet",
		Short: "Prints the kickstart %post section that saves the installer logs",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			binary, _ := cmd.Flags().GetString("binary")
			out, err := postinstall.Snippet(binary)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), out)
			return err
		},
	}
	root.AddCommand(c)
	c.Flags().String("binary", constants.ProgName, "Command the snippet runs")
	return c
}

// register the subcommand into rootCmd
var _ = NewPostSnippetCmd(rootCmd)
