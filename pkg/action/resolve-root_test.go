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
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/twpayne/go-vfs/vfst"

	"github.com/rhinstaller/anaconda-boot/pkg/action"
	"github.com/rhinstaller/anaconda-boot/pkg/config"
	"github.com/rhinstaller/anaconda-boot/pkg/constants"
	"github.com/rhinstaller/anaconda-boot/pkg/mocks"
	"github.com/rhinstaller/anaconda-boot/pkg/rootdev"
	v1 "github.com/rhinstaller/anaconda-boot/pkg/types/v1"
)

var _ = Describe("Root actions", Label("root", "actions"), func() {
	var cfg *v1.RunConfig
	var fs *vfst.TestFS
	var cleanup func()
	var memLog *bytes.Buffer

	setCmdline := func(line string) {
		Expect(fs.WriteFile(constants.CmdlinePath, []byte(line+"\n"), constants.FilePerm)).To(Succeed())
	}

	BeforeEach(func() {
		var err error
		fs, cleanup, err = vfst.NewTestFS(map[string]interface{}{
			"/proc/cmdline":  "",
			"/dev":           &vfst.Dir{Perm: 0755},
			"/etc/cmdline.d": &vfst.Dir{Perm: 0755},
			"/run":           &vfst.Dir{Perm: 0755},
			"/tmp":           &vfst.Dir{Perm: 0777},
		})
		Expect(err).ToNot(HaveOccurred())
		memLog = &bytes.Buffer{}
		logger := v1.NewBufferLogger(memLog)
		logger.SetLevel(v1.DebugLevel())
		cfg = config.NewRunConfig(
			config.WithFs(fs),
			config.WithLogger(logger),
			config.WithRunner(mocks.NewFakeRunner()),
			config.WithCloudInitRunner(mocks.NewFakeCloudInitRunner(logger)),
			config.WithArch("x86_64"),
			config.WithKernelVersion("6.0.0"),
		)
		cfg.PollInterval = 5 * time.Millisecond
		cfg.Root.Timeout = 100 * time.Millisecond
	})
	AfterEach(func() {
		cleanup()
	})

	It("resolves a network stage2 and waits for the root device", func() {
		setCmdline("quiet inst.stage2=https://example.com/repo")
		Expect(fs.WriteFile(constants.RootDevice, []byte{}, constants.FilePerm)).To(Succeed())

		d, err := action.ResolveRootRun(context.Background(), cfg)
		Expect(err).ToNot(HaveOccurred())
		Expect(d.Kind).To(Equal(rootdev.Network))

		env, err := action.ReadRootEnv(cfg)
		Expect(err).ToNot(HaveOccurred())
		Expect(env).To(Equal(map[string]string{
			"root":   "anaconda-net:https://example.com/repo",
			"rootok": "1",
		}))
		data, err := fs.ReadFile(cfg.Root.NeedNetFile)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(data)).To(Equal("rd.neednet=1\n"))
	})
	It("resolves a disk repo without requesting network", func() {
		setCmdline("inst.repo=hd:LABEL=TEST:/iso")
		Expect(fs.WriteFile(constants.RootDevice, []byte{}, constants.FilePerm)).To(Succeed())

		d, err := action.ResolveRootRun(context.Background(), cfg)
		Expect(err).ToNot(HaveOccurred())
		Expect(d.Value).To(Equal("anaconda-disk:LABEL=TEST:/iso"))
		_, err = fs.Stat(cfg.Root.NeedNetFile)
		Expect(err).To(HaveOccurred())
	})
	It("leaves an explicit root untouched", func() {
		setCmdline("root=/dev/sda1 inst.stage2=https://example.com/repo")

		d, err := action.ResolveRootRun(context.Background(), cfg)
		Expect(err).ToNot(HaveOccurred())
		Expect(d.Kind).To(Equal(rootdev.Explicit))
		_, err = fs.Stat(cfg.Root.EnvFile)
		Expect(err).To(HaveOccurred())
		_, err = fs.Stat(cfg.Root.NeedNetFile)
		Expect(err).To(HaveOccurred())
	})
	It("warns about invalid repos and falls back to auto-cd", func() {
		setCmdline("inst.repo=bogus:x")
		Expect(fs.WriteFile(constants.RootDevice, []byte{}, constants.FilePerm)).To(Succeed())

		d, err := action.ResolveRootRun(context.Background(), cfg)
		Expect(err).ToNot(HaveOccurred())
		Expect(d.Value).To(Equal(constants.RootAutoCD))
		Expect(memLog.String()).To(ContainSubstring("Invalid value for 'inst.repo': bogus:x"))
	})
	It("falls back to auto-cd on a disk tag without device", func() {
		setCmdline("inst.stage2=hd:")

		d, err := action.ResolveRoot(cfg)
		Expect(err).ToNot(HaveOccurred())
		Expect(d.Value).To(Equal(constants.RootAutoCD))
		Expect(memLog.String()).ToNot(ContainSubstring("Invalid value"))
	})
	It("reads arguments from cmdline.d", func() {
		Expect(fs.WriteFile("/etc/cmdline.d/10-repo.conf", []byte("inst.repo=nfs:server:/path\n"), constants.FilePerm)).To(Succeed())

		d, err := action.ResolveRoot(cfg)
		Expect(err).ToNot(HaveOccurred())
		Expect(d.Value).To(Equal("anaconda-net:nfs:server:/path"))
	})
	It("resolves root only once", func() {
		setCmdline("inst.stage2=https://example.com/repo")
		_, err := action.ResolveRoot(cfg)
		Expect(err).ToNot(HaveOccurred())

		setCmdline("inst.repo=cdrom")
		d, err := action.ResolveRoot(cfg)
		Expect(err).ToNot(HaveOccurred())
		Expect(d.Kind).To(Equal(rootdev.Network))
		env, err := action.ReadRootEnv(cfg)
		Expect(err).ToNot(HaveOccurred())
		Expect(env["root"]).To(Equal("anaconda-net:https://example.com/repo"))
	})
	It("fails when the root device does not show up", func() {
		setCmdline("inst.stage2=https://example.com/repo")

		_, err := action.ResolveRootRun(context.Background(), cfg)
		Expect(err).To(MatchError(context.DeadlineExceeded))
		env, err := action.ReadRootEnv(cfg)
		Expect(err).ToNot(HaveOccurred())
		Expect(env).ToNot(HaveKey("rootok"))
	})
})
