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

package config

import (
	"github.com/twpayne/go-vfs"
	mount "k8s.io/mount-utils"

	"github.com/rhinstaller/anaconda-boot/pkg/cloudinit"
	"github.com/rhinstaller/anaconda-boot/pkg/constants"
	"github.com/rhinstaller/anaconda-boot/pkg/http"
	v1 "github.com/rhinstaller/anaconda-boot/pkg/types/v1"
	"github.com/rhinstaller/anaconda-boot/pkg/utils"
)

type GenericOptions func(a *v1.Config) error

func WithFs(fs v1.FS) func(r *v1.Config) error {
	return func(r *v1.Config) error {
		r.Fs = fs
		return nil
	}
}

func WithLogger(logger v1.Logger) func(r *v1.Config) error {
	return func(r *v1.Config) error {
		r.Logger = logger
		return nil
	}
}

func WithRunner(runner v1.Runner) func(r *v1.Config) error {
	return func(r *v1.Config) error {
		r.Runner = runner
		return nil
	}
}

func WithMounter(mounter mount.Interface) func(r *v1.Config) error {
	return func(r *v1.Config) error {
		r.Mounter = mounter
		return nil
	}
}

func WithCloudInitRunner(ci v1.CloudInitRunner) func(r *v1.Config) error {
	return func(r *v1.Config) error {
		r.CloudInitRunner = ci
		return nil
	}
}

func WithClient(client v1.HTTPClient) func(r *v1.Config) error {
	return func(r *v1.Config) error {
		r.Client = client
		return nil
	}
}

func WithArch(arch string) func(r *v1.Config) error {
	return func(r *v1.Config) error {
		r.Arch = arch
		return nil
	}
}

func WithKernelVersion(version string) func(r *v1.Config) error {
	return func(r *v1.Config) error {
		r.KernelVersion = version
		return nil
	}
}

// NewConfig returns the generic configuration with the real system
// collaborators unless overwritten by the given options
func NewConfig(opts ...GenericOptions) *v1.Config {
	log := v1.NewLogger()

	c := &v1.Config{
		Fs:           vfs.OSFS,
		Logger:       log,
		PollInterval: constants.DefaultPollInterval,
		Paths: v1.Paths{
			Cmdline:    constants.CmdlinePath,
			CmdlineDir: constants.CmdlineDir,
			TmpDir:     constants.TmpDir,
			RunDir:     constants.RunDir,
			RulesFile:  constants.DriverDiskRulesFile,
		},
		CloudInitPaths: []string{constants.CloudInitHooksDir},
	}
	for _, o := range opts {
		err := o(c)
		if err != nil {
			log.Errorf("error applying config option: %s", err.Error())
			return nil
		}
	}

	// delay runner creation after we have run over the options in case we use WithRunner
	if c.Runner == nil {
		c.Runner = &v1.RealRunner{Logger: c.Logger}
	}

	// Now check if the runner has a logger inside, otherwise point our logger into it
	// This can happen if we set the WithRunner option as that doesn't set a logger
	if c.Runner.GetLogger() == nil {
		c.Runner.SetLogger(c.Logger)
	}

	if c.Mounter == nil {
		c.Mounter = mount.New("")
	}

	if c.Client == nil {
		c.Client = http.NewClient()
	}

	if c.CloudInitRunner == nil {
		c.CloudInitRunner = cloudinit.NewYipCloudInitRunner(c.Logger, c.Runner, vfs.OSFS)
	}

	if c.Arch == "" || c.KernelVersion == "" {
		release, arch, err := utils.GetKernelInfo()
		if err != nil {
			c.Logger.Warnf("failed reading kernel information: %v", err)
		}
		if c.Arch == "" {
			c.Arch = arch
		}
		if c.KernelVersion == "" {
			c.KernelVersion = release
		}
	}
	return c
}

// NewRunConfig returns the full boot hooks configuration with defaults
func NewRunConfig(opts ...GenericOptions) *v1.RunConfig {
	c := NewConfig(opts...)
	if c == nil {
		return nil
	}
	return &v1.RunConfig{
		Config: *c,
		DriverDisk: v1.DriverDiskConfig{
			OEMSpec:   constants.OEMDriverDiskSpec,
			Initqueue: constants.InitqueueCmd,
			Handler:   constants.DriverUpdatesCmd,
		},
		Root: v1.RootConfig{
			Device:      constants.RootDevice,
			EnvFile:     constants.RootEnvFile,
			NeedNetFile: constants.NeedNetFile,
		},
		DriverUpdate: v1.DriverUpdateConfig{
			AnacondaVersion: constants.AnacondaVersion,
			UpdatesDir:      constants.DDUpdatesDir,
			InstallDir:      constants.DDInstallDir,
			MediaDir:        constants.DDMediaDir,
			FirmwareDir:     constants.FirmwareUpdateDir,
			Syslog:          true,
		},
		PostInstall: v1.PostInstallConfig{
			Logs:         constants.GetDefaultLogs(),
			KickstartSrc: constants.KickstartFile,
			Journal:      true,
		},
	}
}
