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

package cloudinit

import (
	"fmt"
	"os/exec"

	"github.com/hashicorp/go-multierror"

	v1 "github.com/rhinstaller/anaconda-boot/pkg/types/v1"
)

// cloudInitConsole runs yip commands through our Runner so they are logged
// and can be faked in tests
type cloudInitConsole struct {
	runner v1.Runner
	logger v1.Logger
}

func newCloudInitConsole(l v1.Logger, r v1.Runner) *cloudInitConsole {
	return &cloudInitConsole{logger: l, runner: r}
}

func (c cloudInitConsole) Run(cmd string, opts ...func(cmd *exec.Cmd)) (string, error) {
	c.logger.Debugf("running command `%s`", cmd)
	command := c.runner.InitCmd("sh", "-c", cmd)
	for _, o := range opts {
		o(command)
	}
	out, err := c.runner.RunCmd(command)
	if err != nil {
		return string(out), fmt.Errorf("failed to run %s: %v", cmd, err)
	}
	return string(out), err
}

func (c cloudInitConsole) Start(cmd *exec.Cmd, opts ...func(cmd *exec.Cmd)) error {
	c.logger.Debugf("running command `%s`", cmd)
	for _, o := range opts {
		o(cmd)
	}
	return cmd.Run()
}

func (c cloudInitConsole) RunTemplate(st []string, template string) error {
	var errs error
	for _, svc := range st {
		out, err := c.Run(fmt.Sprintf(template, svc))
		if err != nil {
			c.logger.Error(out)
			c.logger.Error(err.Error())
			errs = multierror.Append(errs, err)
			continue
		}
	}
	return errs
}
