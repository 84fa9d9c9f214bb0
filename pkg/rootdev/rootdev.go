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

// Package rootdev decides which root device designator the installer boots
// from, given the boot arguments.
package rootdev

import (
	"fmt"
	"strings"

	"github.com/rhinstaller/anaconda-boot/pkg/cmdline"
	"github.com/rhinstaller/anaconda-boot/pkg/constants"
)

type Kind int

const (
	// None is the unclassified outcome of Classify, Resolve never returns it
	None Kind = iota
	Explicit
	Network
	Disk
	AutoCD
)

func (k Kind) String() string {
	switch k {
	case Explicit:
		return "explicit"
	case Network:
		return "network"
	case Disk:
		return "disk"
	case AutoCD:
		return "auto-cd"
	default:
		return "none"
	}
}

func (k Kind) MarshalYAML() (interface{}, error) {
	return k.String(), nil
}

// Decision is the outcome of root resolution
type Decision struct {
	Kind         Kind   `yaml:"kind"`
	Value        string `yaml:"root,omitempty"`
	NeedsNetwork bool   `yaml:"neednet,omitempty"`
	// Source is the boot argument the value was classified from
	Source string `yaml:"source,omitempty"`
	// Warning is set when the classified value was invalid
	Warning string `yaml:"warning,omitempty"`
}

// IsAnaconda is true for designators the installer itself must wait for
func (d Decision) IsAnaconda() bool {
	return strings.HasPrefix(d.Value, constants.RootPrefix)
}

// Classify maps a repo or stage2 value to a root designator. A value whose
// type tag is unknown yields None with a warning; a disk tag without a
// device yields None without one.
func Classify(source, value string) Decision {
	tag, rest, _ := strings.Cut(value, ":")
	switch {
	case contains(constants.GetNetRepoTypes(), tag):
		return Decision{
			Kind:         Network,
			Value:        constants.RootNetPrefix + value,
			NeedsNetwork: true,
			Source:       source,
		}
	case contains(constants.GetDiskRepoTypes(), tag):
		if rest == "" {
			return Decision{Kind: None, Source: source}
		}
		return Decision{Kind: Disk, Value: constants.RootDiskPrefix + rest, Source: source}
	default:
		return Decision{
			Kind:    None,
			Source:  source,
			Warning: fmt.Sprintf("Invalid value for '%s': %s", source, value),
		}
	}
}

// Resolve computes the root designator for the given boot arguments. A
// non-empty root= always wins, then inst.stage2 over inst.repo, and the
// auto-cd sentinel when nothing else applies. Empty values count as unset.
func Resolve(args cmdline.Args) Decision {
	if root, _ := args.Get("root"); root != "" {
		return Decision{Kind: Explicit, Value: root, Source: "root"}
	}

	var d Decision
	if stage2, _ := args.Get("stage2", "inst.stage2"); stage2 != "" {
		d = Classify("inst.stage2", stage2)
	} else if repo, _ := args.Get("repo", "inst.repo"); repo != "" {
		d = Classify("inst.repo", repo)
	}

	if d.Kind == None {
		d.Kind = AutoCD
		d.Value = constants.RootAutoCD
	}
	return d
}

func contains(list []string, s string) bool {
	for _, i := range list {
		if i == s {
			return true
		}
	}
	return false
}
