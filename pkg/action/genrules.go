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

package action

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rhinstaller/anaconda-boot/pkg/constants"
	"github.com/rhinstaller/anaconda-boot/pkg/driverdisk"
	v1 "github.com/rhinstaller/anaconda-boot/pkg/types/v1"
	"github.com/rhinstaller/anaconda-boot/pkg/utils"
)

// ParseDDRun records the driver disks requested on the boot command line
// as request files for the rules generator and the driver update handler
func ParseDDRun(cfg *v1.RunConfig) (driverdisk.Requests, error) {
	args, err := ReadCmdline(cfg)
	if err != nil {
		return driverdisk.Requests{}, err
	}
	reqs := driverdisk.ParseRequests(args)
	if reqs.IsEmpty() {
		cfg.Logger.Debug("no driver disks requested")
	} else {
		cfg.Logger.Infof("Driver disks requested: %v", reqs.Todo())
	}

	err = utils.MkdirAll(cfg.Fs, cfg.Paths.TmpDir, constants.DirPerm)
	if err != nil {
		return reqs, err
	}
	return reqs, reqs.Write(cfg.Fs, cfg.Paths.TmpDir)
}

// WaitForDriverDisksRun blocks while network or interactive driver disks are
// still being handled
func WaitForDriverDisksRun(ctx context.Context, cfg *v1.RunConfig) error {
	if !driverdisk.Pending(cfg.Fs, cfg.Paths.TmpDir) {
		return nil
	}
	ctx, cancel := utils.ContextWithTimeout(ctx, cfg.DriverDisk.Timeout)
	defer cancel()

	cfg.Logger.Info("Waiting for driver disks to be loaded")
	err := driverdisk.WaitForDriverDisks(ctx, cfg.Fs, cfg.Paths.TmpDir, cfg.PollInterval)
	if err != nil {
		return fmt.Errorf("driver disks not loaded: %w", err)
	}
	return nil
}

// GenRulesRun writes the udev rules that hand every matching block device
// to the driver update handler. The OEM driver disk always gets a rule.
func GenRulesRun(cfg *v1.RunConfig) (driverdisk.Rules, error) {
	specs := driverdisk.Specs(cfg.DriverDisk.OEMSpec, driverdisk.ReadDiskSpecs(cfg.Fs, cfg.Paths.TmpDir)...)
	gen := driverdisk.NewGenerator(
		cfg.Logger,
		driverdisk.WithCommand(driverdisk.DefaultCommand(cfg.DriverDisk.Initqueue, cfg.DriverDisk.Handler)...),
	)
	rules, err := gen.Generate(specs)
	if err != nil {
		return nil, err
	}

	err = utils.MkdirAll(cfg.Fs, filepath.Dir(cfg.Paths.RulesFile), constants.DirPerm)
	if err != nil {
		return rules, err
	}
	cfg.Logger.Infof("Writing %d driver disk rules to %s", len(rules), cfg.Paths.RulesFile)
	return rules, driverdisk.WriteRules(cfg.Fs, cfg.Paths.RulesFile, rules)
}
