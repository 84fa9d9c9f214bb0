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

package driverdisk

import (
	"fmt"
	"strings"

	"github.com/rhinstaller/anaconda-boot/pkg/constants"
)

// Rule is a udev rule that runs the driver update handler once for a
// matching block device
type Rule struct {
	Subsystem string
	Match     string
	Command   []string
	Spec      string
	DevNode   string
}

// NewRule returns the rule for spec, command is the queued handler command
// line without its disk arguments
func NewRule(spec, match string, command []string) Rule {
	return Rule{
		Subsystem: "block",
		Match:     match,
		Command:   command,
		Spec:      spec,
		DevNode:   constants.DevNodePlaceholder,
	}
}

// String formats the rule as a single udev rules line
func (r Rule) String() string {
	run := append(append([]string{}, r.Command...), "--disk", r.Spec, r.DevNode)
	return fmt.Sprintf(`SUBSYSTEM=="%s", %s, RUN+="%s"`, r.Subsystem, r.Match, strings.Join(run, " "))
}

// Rules is an ordered rules file
type Rules []Rule

func (rs Rules) String() string {
	var sb strings.Builder
	for _, r := range rs {
		sb.WriteString(r.String())
		sb.WriteString("\n")
	}
	return sb.String()
}
