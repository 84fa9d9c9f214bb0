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

package action_test

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/twpayne/go-vfs/vfst"

	"github.com/rhinstaller/anaconda-boot/pkg/action"
	"github.com/rhinstaller/anaconda-boot/pkg/config"
	"github.com/rhinstaller/anaconda-boot/pkg/constants"
	"github.com/rhinstaller/anaconda-boot/pkg/mocks"
	v1 "github.com/rhinstaller/anaconda-boot/pkg/types/v1"
	"github.com/rhinstaller/anaconda-boot/pkg/utils"
)

var _ = Describe("Boot hooks", Label("hooks", "actions"), func() {
	var cfg *v1.RunConfig
	var fs *vfst.TestFS
	var cleanup func()
	var memLog *bytes.Buffer
	var ci *mocks.FakeCloudInitRunner

	setCmdline := func(line string) {
		Expect(fs.WriteFile(constants.CmdlinePath, []byte(line+"\n"), constants.FilePerm)).To(Succeed())
	}

	BeforeEach(func() {
		var err error
		fs, cleanup, err = vfst.NewTestFS(map[string]interface{}{
			"/proc/cmdline":     "",
			"/dev":              &vfst.Dir{Perm: 0755},
			"/etc/udev/rules.d": &vfst.Dir{Perm: 0755},
			"/run":              &vfst.Dir{Perm: 0755},
			"/tmp":              &vfst.Dir{Perm: 0777},
		})
		Expect(err).ToNot(HaveOccurred())
		memLog = &bytes.Buffer{}
		logger := v1.NewBufferLogger(memLog)
		ci = mocks.NewFakeCloudInitRunner(logger)
		cfg = config.NewRunConfig(
			config.WithFs(fs),
			config.WithLogger(logger),
			config.WithRunner(mocks.NewFakeRunner()),
			config.WithCloudInitRunner(ci),
			config.WithArch("x86_64"),
			config.WithKernelVersion("6.0.0"),
		)
		cfg.PollInterval = 5 * time.Millisecond
		cfg.Root.Timeout = 100 * time.Millisecond
		cfg.DriverDisk.Timeout = 50 * time.Millisecond
	})
	AfterEach(func() {
		cleanup()
	})

	Describe("Driver disk requests", func() {
		It("records disk, network and interactive requests", func() {
			setCmdline("inst.dd inst.dd=hd:LABEL=TESTDD2 dd=http://example.com/dd.iso dd=/dev/sdb1")

			reqs, err := action.ParseDDRun(cfg)
			Expect(err).ToNot(HaveOccurred())
			Expect(reqs.Interactive).To(BeTrue())
			Expect(utils.ReadLines(fs, filepath.Join(cfg.Paths.TmpDir, constants.DDDiskFile))).
				To(Equal([]string{"LABEL=TESTDD2", "/dev/sdb1"}))
			Expect(utils.ReadLines(fs, filepath.Join(cfg.Paths.TmpDir, constants.DDNetFile))).
				To(Equal([]string{"http://example.com/dd.iso"}))
			Expect(utils.ReadLines(fs, filepath.Join(cfg.Paths.TmpDir, constants.DDTodoFile))).
				To(Equal([]string{"menu", "http://example.com/dd.iso", "LABEL=TESTDD2", "/dev/sdb1"}))
		})
		It("clears stale request files", func() {
			Expect(fs.WriteFile("/tmp/dd_net", []byte("http://old\n"), constants.FilePerm)).To(Succeed())
			setCmdline("quiet")

			reqs, err := action.ParseDDRun(cfg)
			Expect(err).ToNot(HaveOccurred())
			Expect(reqs.IsEmpty()).To(BeTrue())
			_, err = fs.Stat("/tmp/dd_net")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Rules generation", func() {
		It("writes the OEM rule when nothing was requested", func() {
			rules, err := action.GenRulesRun(cfg)
			Expect(err).ToNot(HaveOccurred())
			Expect(rules).To(HaveLen(1))
			data, err := fs.ReadFile(constants.DriverDiskRulesFile)
			Expect(err).ToNot(HaveOccurred())
			Expect(string(data)).To(Equal(
				`SUBSYSTEM=="block", ENV{ID_FS_LABEL}=="OEMDRV", ` +
					`RUN+="/sbin/initqueue --onetime --unique --name dd_initqueue /usr/bin/anaconda-boot driver-updates --disk LABEL=OEMDRV $devnode"` + "\n",
			))
		})
		It("writes one rule per requested disk and skips unknown ones", func() {
			Expect(fs.WriteFile("/tmp/dd_disk", []byte("LABEL=TESTDD2\n/dev/sdb1\nbogus\n"), constants.FilePerm)).To(Succeed())

			rules, err := action.GenRulesRun(cfg)
			Expect(err).ToNot(HaveOccurred())
			Expect(rules).To(HaveLen(3))
			data, err := fs.ReadFile(constants.DriverDiskRulesFile)
			Expect(err).ToNot(HaveOccurred())
			lines := strings.Split(strings.TrimSpace(string(data)), "\n")
			Expect(lines).To(HaveLen(3))
			Expect(lines[2]).To(ContainSubstring(`KERNEL=="sdb1"`))
			Expect(memLog.String()).To(ContainSubstring("Ignoring driver disk 'bogus'"))
		})
		It("does not wait without pending requests", func() {
			Expect(action.WaitForDriverDisksRun(context.Background(), cfg)).To(Succeed())
		})
		It("waits for network driver disks until done", func() {
			Expect(fs.WriteFile("/tmp/dd_net", []byte("http://example.com/dd.iso\n"), constants.FilePerm)).To(Succeed())
			Expect(action.WaitForDriverDisksRun(context.Background(), cfg)).To(MatchError(context.DeadlineExceeded))

			Expect(fs.WriteFile("/tmp/dd.done", []byte("true\n"), constants.FilePerm)).To(Succeed())
			Expect(action.WaitForDriverDisksRun(context.Background(), cfg)).To(Succeed())
		})
	})

	Describe("Hooks graph", func() {
		It("runs every hook in order", func() {
			setCmdline("inst.stage2=https://example.com/repo inst.dd=LABEL=TESTDD2")
			Expect(utils.MkdirAll(fs, constants.CloudInitHooksDir, constants.DirPerm)).To(Succeed())
			Expect(fs.WriteFile(constants.RootDevice, []byte{}, constants.FilePerm)).To(Succeed())

			h, err := action.NewHooksRun(cfg)
			Expect(err).ToNot(HaveOccurred())
			Expect(h.Run(context.Background())).To(Succeed())

			Expect(h.Root().Value).To(Equal("anaconda-net:https://example.com/repo"))
			Expect(ci.ExecStages).To(Equal([]string{constants.HooksStage}))
			rules, err := fs.ReadFile(constants.DriverDiskRulesFile)
			Expect(err).ToNot(HaveOccurred())
			Expect(strings.Count(string(rules), "\n")).To(Equal(2))
			env, err := action.ReadRootEnv(cfg)
			Expect(err).ToNot(HaveOccurred())
			Expect(env).To(HaveKeyWithValue("rootok", "1"))
			_, err = fs.Stat(cfg.Root.NeedNetFile)
			Expect(err).ToNot(HaveOccurred())
		})
		It("skips missing stage directories", func() {
			setCmdline("root=/dev/sda1")

			h, err := action.NewHooksRun(cfg)
			Expect(err).ToNot(HaveOccurred())
			Expect(h.Run(context.Background())).To(Succeed())
			Expect(ci.ExecStages).To(BeEmpty())
			_, err = fs.Stat(cfg.Root.EnvFile)
			Expect(err).To(HaveOccurred())
		})
		It("stops when a hook fails", func() {
			setCmdline("inst.dd")

			h, err := action.NewHooksRun(cfg)
			Expect(err).ToNot(HaveOccurred())
			err = h.Run(context.Background())
			Expect(err).To(MatchError(context.DeadlineExceeded))
			Expect(err.Error()).To(ContainSubstring(action.OpWaitDD))
			_, err = fs.Stat(constants.DriverDiskRulesFile)
			Expect(err).To(HaveOccurred())
			env, err := action.ReadRootEnv(cfg)
			Expect(err).ToNot(HaveOccurred())
			Expect(env).ToNot(HaveKey("rootok"))
		})
		It("prints the hooks without running them", func() {
			setCmdline("inst.dd")

			h, err := action.NewHooksRun(cfg)
			Expect(err).ToNot(HaveOccurred())
			out := &bytes.Buffer{}
			Expect(h.WriteDAG(out)).To(Succeed())
			Expect(out.String()).To(HavePrefix("1. dd-parse\n"))
			Expect(out.String()).To(HaveSuffix("7. root-ok\n"))
			_, err = fs.Stat("/tmp/dd_interactive")
			Expect(err).To(HaveOccurred())
		})
	})
})
