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

package config_test

import (
	"bytes"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/pflag"
	"github.com/twpayne/go-vfs/vfst"

	. "github.com/rhinstaller/anaconda-boot/cmd/config"
	"github.com/rhinstaller/anaconda-boot/pkg/config"
	"github.com/rhinstaller/anaconda-boot/pkg/constants"
	"github.com/rhinstaller/anaconda-boot/pkg/mocks"
	v1 "github.com/rhinstaller/anaconda-boot/pkg/types/v1"
)

func TestConfigSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Config test suite")
}

var _ = Describe("Config", Label("config"), func() {
	var fs *vfst.TestFS
	var cleanup func()
	var opts []config.GenericOptions

	BeforeEach(func() {
		var err error
		fs, cleanup, err = vfst.NewTestFS(map[string]interface{}{
			"/etc/anaconda-boot/config.yaml": `
root:
  timeout: 30s
  device: /dev/disk/by-label/INSTALL
driverdisk:
  oem-spec: LABEL=VENDORDD
cloud-init-paths:
  - /etc/anaconda-boot/hooks.d
  - /run/anaconda-boot/hooks.d
poll-interval: -1s
`,
			"/etc/anaconda-boot/config.d/20-timeout.yaml": "root:\n  timeout: 2m\n",
			"/etc/anaconda-boot/config.d/10-timeout.yaml": "root:\n  timeout: 1m\ntmp-dir: /var/tmp\n",
		})
		Expect(err).ToNot(HaveOccurred())
		opts = []config.GenericOptions{
			config.WithFs(fs),
			config.WithLogger(v1.NewBufferLogger(&bytes.Buffer{})),
			config.WithRunner(mocks.NewFakeRunner()),
			config.WithCloudInitRunner(mocks.NewFakeCloudInitRunner(v1.NewNullLogger())),
			config.WithArch("x86_64"),
			config.WithKernelVersion("6.0.0"),
		}
	})
	AfterEach(func() {
		cleanup()
	})

	It("uses the defaults without configuration files", func() {
		cfg, err := ReadConfigRun("/nowhere", nil, nil, opts...)
		Expect(err).ToNot(HaveOccurred())
		Expect(cfg.Root.Device).To(Equal(constants.RootDevice))
		Expect(cfg.DriverDisk.OEMSpec).To(Equal(constants.OEMDriverDiskSpec))
		Expect(cfg.PollInterval).To(Equal(constants.DefaultPollInterval))
		Expect(cfg.CloudInitPaths).To(Equal([]string{constants.CloudInitHooksDir}))
	})
	It("merges the config file and drop-ins in order", func() {
		cfg, err := ReadConfigRun("/etc/anaconda-boot", nil, nil, opts...)
		Expect(err).ToNot(HaveOccurred())
		Expect(cfg.Root.Timeout).To(Equal(2 * time.Minute))
		Expect(cfg.Root.Device).To(Equal("/dev/disk/by-label/INSTALL"))
		Expect(cfg.Root.EnvFile).To(Equal(constants.RootEnvFile))
		Expect(cfg.DriverDisk.OEMSpec).To(Equal("LABEL=VENDORDD"))
		Expect(cfg.Paths.TmpDir).To(Equal("/var/tmp"))
		Expect(cfg.Paths.Cmdline).To(Equal(constants.CmdlinePath))
		Expect(cfg.CloudInitPaths).To(Equal([]string{"/etc/anaconda-boot/hooks.d", "/run/anaconda-boot/hooks.d"}))
		Expect(cfg.PollInterval).To(Equal(500 * time.Millisecond))
	})
	It("lets the environment override files", func() {
		Expect(os.Setenv("ANACONDA_BOOT_ROOT_DEVICE", "/dev/sr0")).To(Succeed())
		Expect(os.Setenv("ANACONDA_BOOT_POST_INSTALL_LOGS", "a.log,b.log")).To(Succeed())
		defer os.Unsetenv("ANACONDA_BOOT_ROOT_DEVICE")
		defer os.Unsetenv("ANACONDA_BOOT_POST_INSTALL_LOGS")

		cfg, err := ReadConfigRun("/etc/anaconda-boot", nil, nil, opts...)
		Expect(err).ToNot(HaveOccurred())
		Expect(cfg.Root.Device).To(Equal("/dev/sr0"))
		Expect(cfg.PostInstall.Logs).To(Equal([]string{"a.log", "b.log"}))
	})
	It("lets given flags override everything else", func() {
		flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
		flags.Duration("timeout", 0, "")
		flags.String("device", "/dev/ignored", "")
		Expect(flags.Parse([]string{"--timeout", "5s"})).To(Succeed())

		cfg, err := ReadConfigRun("/etc/anaconda-boot", flags, FlagKeys{"timeout": "root.timeout", "device": "root.device"}, opts...)
		Expect(err).ToNot(HaveOccurred())
		Expect(cfg.Root.Timeout).To(Equal(5 * time.Second))
		Expect(cfg.Root.Device).To(Equal("/dev/disk/by-label/INSTALL"))
	})
	It("fails on malformed files", func() {
		Expect(fs.WriteFile("/etc/anaconda-boot/config.d/30-bad.yaml", []byte("root: [\n"), constants.FilePerm)).To(Succeed())
		_, err := ReadConfigRun("/etc/anaconda-boot", nil, nil, opts...)
		Expect(err).To(HaveOccurred())
	})
})
