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
	"errors"

	"github.com/google/shlex"

	"github.com/rhinstaller/anaconda-boot/pkg/constants"
	v1 "github.com/rhinstaller/anaconda-boot/pkg/types/v1"
	"github.com/rhinstaller/anaconda-boot/pkg/utils"
)

// Generator builds the udev rules that run the driver update handler
type Generator struct {
	logger  v1.Logger
	matcher Matcher
	command []string
}

type GeneratorOption func(*Generator)

func WithMatcher(m Matcher) GeneratorOption {
	return func(g *Generator) {
		g.matcher = m
	}
}

// WithCommand sets the queued command line the rules run, disk arguments
// are appended to it
func WithCommand(command ...string) GeneratorOption {
	return func(g *Generator) {
		g.command = command
	}
}

func NewGenerator(logger v1.Logger, opts ...GeneratorOption) *Generator {
	g := &Generator{
		logger:  logger,
		matcher: NewUdevMatcher(),
		command: DefaultCommand(constants.InitqueueCmd, constants.DriverUpdatesCmd),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// DefaultCommand returns the initqueue command line that runs handler once
// per distinct disk. handler is a command line, it may carry arguments.
func DefaultCommand(initqueue, handler string) []string {
	cmd := []string{initqueue, "--onetime", "--unique", "--name", constants.DDInitqueueName}
	argv, err := shlex.Split(handler)
	if err != nil || len(argv) == 0 {
		return append(cmd, handler)
	}
	return append(cmd, argv...)
}

// Specs returns the OEM spec followed by the requested ones, without
// duplicates
func Specs(oem string, requested ...string) []string {
	seen := map[string]bool{}
	specs := []string{}
	for _, s := range append([]string{oem}, requested...) {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		specs = append(specs, s)
	}
	return specs
}

// Generate returns one rule per spec. Specs the matcher can't express are
// skipped with a warning.
func (g Generator) Generate(specs []string) (Rules, error) {
	rules := Rules{}
	for _, spec := range specs {
		match, err := g.matcher.Match(spec)
		if errors.Is(err, ErrNoMatch) {
			g.logger.Warnf("Ignoring driver disk '%s': %v", spec, err)
			continue
		} else if err != nil {
			return nil, err
		}
		rules = append(rules, NewRule(spec, match, g.command))
	}
	return rules, nil
}

// WriteRules replaces the rules file with the given rules
func WriteRules(fs v1.FS, path string, rules Rules) error {
	return utils.WriteFileAtomic(fs, path, []byte(rules.String()), constants.FilePerm)
}
