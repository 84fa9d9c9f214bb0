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

package v1

import (
	"time"

	mount "k8s.io/mount-utils"
)

// CloudInitRunner runs a named stage from the given paths
type CloudInitRunner interface {
	Run(string, ...string) error
}

// HTTPClient downloads a remote resource into a local destination
type HTTPClient interface {
	GetURL(log Logger, url string, destination string) error
}

// Config is the struct that includes basic and generic configuration of every
// anaconda-boot command. It carries the runtime collaborators.
type Config struct {
	Logger          Logger
	Fs              FS
	Mounter         mount.Interface
	Runner          Runner
	CloudInitRunner CloudInitRunner
	Client          HTTPClient
	Arch            string
	KernelVersion   string
	Paths           Paths         `yaml:",inline" mapstructure:",squash"`
	PollInterval    time.Duration `yaml:"poll-interval,omitempty" mapstructure:"poll-interval"`
	CloudInitPaths  []string      `yaml:"cloud-init-paths,omitempty" mapstructure:"cloud-init-paths"`
}

// Paths holds the well-known locations the boot hooks read and write
type Paths struct {
	Cmdline    string `yaml:"cmdline-path,omitempty" mapstructure:"cmdline-path"`
	CmdlineDir string `yaml:"cmdline-dir,omitempty" mapstructure:"cmdline-dir"`
	TmpDir     string `yaml:"tmp-dir,omitempty" mapstructure:"tmp-dir"`
	RunDir     string `yaml:"run-dir,omitempty" mapstructure:"run-dir"`
	RulesFile  string `yaml:"rules-file,omitempty" mapstructure:"rules-file"`
}

// DriverDiskConfig configures udev rule generation and the driver disk wait
type DriverDiskConfig struct {
	OEMSpec   string        `yaml:"oem-spec,omitempty" mapstructure:"oem-spec"`
	Initqueue string        `yaml:"initqueue,omitempty" mapstructure:"initqueue"`
	Handler   string        `yaml:"handler,omitempty" mapstructure:"handler"`
	Timeout   time.Duration `yaml:"timeout,omitempty" mapstructure:"timeout"`
}

// RootConfig configures how the resolved root is exported and awaited
type RootConfig struct {
	Device      string        `yaml:"device,omitempty" mapstructure:"device"`
	Timeout     time.Duration `yaml:"timeout,omitempty" mapstructure:"timeout"`
	EnvFile     string        `yaml:"env-file,omitempty" mapstructure:"env-file"`
	NeedNetFile string        `yaml:"neednet-file,omitempty" mapstructure:"neednet-file"`
}

// DriverUpdateConfig configures the driver update disk handler
type DriverUpdateConfig struct {
	AnacondaVersion string `yaml:"anaconda-version,omitempty" mapstructure:"anaconda-version"`
	UpdatesDir      string `yaml:"updates-dir,omitempty" mapstructure:"updates-dir"`
	InstallDir      string `yaml:"install-dir,omitempty" mapstructure:"install-dir"`
	MediaDir        string `yaml:"media-dir,omitempty" mapstructure:"media-dir"`
	ModulesDir      string `yaml:"modules-dir,omitempty" mapstructure:"modules-dir"`
	FirmwareDir     string `yaml:"firmware-dir,omitempty" mapstructure:"firmware-dir"`
	Syslog          bool   `yaml:"syslog,omitempty" mapstructure:"syslog"`
}

// PostInstallConfig configures log preservation into the installed system
type PostInstallConfig struct {
	InstallPath  string   `yaml:"install-path,omitempty" mapstructure:"install-path"`
	Logs         []string `yaml:"logs,omitempty" mapstructure:"logs"`
	KickstartSrc string   `yaml:"kickstart,omitempty" mapstructure:"kickstart"`
	Journal      bool     `yaml:"journal,omitempty" mapstructure:"journal"`
}

// RunConfig is the full configuration of the boot hooks
type RunConfig struct {
	DriverDisk   DriverDiskConfig   `yaml:"driverdisk,omitempty" mapstructure:"driverdisk"`
	Root         RootConfig         `yaml:"root,omitempty" mapstructure:"root"`
	DriverUpdate DriverUpdateConfig `yaml:"driver-updates,omitempty" mapstructure:"driver-updates"`
	PostInstall  PostInstallConfig  `yaml:"post-install,omitempty" mapstructure:"post-install"`

	// 'inline' and 'squash' options pull Config fields into the RunConfig
	Config `yaml:",inline" mapstructure:",squash"`
}

// Sanitize checks the consistency of the struct, returns error
// if unsolvable inconsistencies are found
func (r *RunConfig) Sanitize() error {
	if r.PollInterval <= 0 {
		r.PollInterval = 500 * time.Millisecond
	}
	if r.DriverDisk.Timeout < 0 {
		r.DriverDisk.Timeout = 0
	}
	if r.Root.Timeout < 0 {
		r.Root.Timeout = 0
	}
	return nil
}
