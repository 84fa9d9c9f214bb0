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

package postinstall_test

import (
	"bytes"
	"errors"
	"os"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/twpayne/go-vfs/vfst"

	"github.com/rhinstaller/anaconda-boot/pkg/config"
	"github.com/rhinstaller/anaconda-boot/pkg/mocks"
	"github.com/rhinstaller/anaconda-boot/pkg/postinstall"
	v1 "github.com/rhinstaller/anaconda-boot/pkg/types/v1"
)

func TestPostInstallSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Post install test suite")
}

var _ = Describe("Post install", Label("postinstall"), func() {
	var cfg *v1.RunConfig
	var fs *vfst.TestFS
	var cleanup func()
	var runner *mocks.FakeRunner
	var memLog *bytes.Buffer

	BeforeEach(func() {
		var err error
		fs, cleanup, err = vfst.NewTestFS(map[string]interface{}{
			"/tmp/anaconda.log":                   "anaconda",
			"/tmp/storage.log":                    "storage",
			"/tmp/ks-script-abc.log":              "script a",
			"/tmp/ks-script-def.log":              "script b",
			"/tmp/unrelated.log":                  "nope",
			"/tmp/pre-anaconda-logs/lsblk-output": "lsblk",
			"/run/install/ks.cfg":                 "text\n",
			"/mnt/sysroot":                        &vfst.Dir{Perm: 0755},
		})
		Expect(err).ToNot(HaveOccurred())
		runner = mocks.NewFakeRunner()
		runner.ReturnValue = []byte("journal contents")
		memLog = &bytes.Buffer{}
		cfg = config.NewRunConfig(
			config.WithFs(fs),
			config.WithLogger(v1.NewBufferLogger(memLog)),
			config.WithRunner(runner),
			config.WithClient(mocks.NewFakeHTTPClient(fs)),
			config.WithCloudInitRunner(mocks.NewFakeCloudInitRunner(v1.NewNullLogger())),
			config.WithArch("x86_64"),
			config.WithKernelVersion("5.14.0"),
		)
		cfg.PostInstall.InstallPath = "/mnt/sysroot"
	})
	AfterEach(func() {
		cleanup()
	})

	It("copies logs, journal and kickstart", func() {
		Expect(postinstall.SaveLogs(cfg)).To(Succeed())

		for f, content := range map[string]string{
			"/mnt/sysroot/var/log/anaconda/anaconda.log":                   "anaconda",
			"/mnt/sysroot/var/log/anaconda/storage.log":                    "storage",
			"/mnt/sysroot/var/log/anaconda/ks-script-abc.log":              "script a",
			"/mnt/sysroot/var/log/anaconda/ks-script-def.log":              "script b",
			"/mnt/sysroot/var/log/anaconda/journal.log":                    "journal contents",
			"/mnt/sysroot/var/log/anaconda/pre-anaconda-logs/lsblk-output": "lsblk",
			"/mnt/sysroot/root/original-ks.cfg":                            "text\n",
		} {
			data, err := fs.ReadFile(f)
			Expect(err).ToNot(HaveOccurred(), f)
			Expect(string(data)).To(Equal(content))
		}
		_, err := fs.Stat("/mnt/sysroot/var/log/anaconda/unrelated.log")
		Expect(err).To(HaveOccurred())
		_, err = fs.Stat("/mnt/sysroot/var/log/anaconda/program.log")
		Expect(err).To(HaveOccurred())

		for _, f := range []string{"anaconda.log", "storage.log", "ks-script-abc.log", "journal.log"} {
			fi, err := fs.Stat("/mnt/sysroot/var/log/anaconda/" + f)
			Expect(err).ToNot(HaveOccurred())
			Expect(fi.Mode().Perm()).To(Equal(os.FileMode(0600)), f)
		}
		Expect(runner.CmdsMatch([][]string{{"journalctl", "-b"}})).To(Succeed())
	})
	It("skips logs when asked to, removing the sentinel", func() {
		Expect(fs.WriteFile("/tmp/NOSAVE_LOGS_FILE", []byte{}, 0644)).To(Succeed())
		Expect(postinstall.SaveLogs(cfg)).To(Succeed())

		_, err := fs.Stat("/mnt/sysroot/var/log/anaconda")
		Expect(err).To(HaveOccurred())
		_, err = fs.Stat("/tmp/NOSAVE_LOGS_FILE")
		Expect(err).To(HaveOccurred())
		_, err = fs.Stat("/mnt/sysroot/root/original-ks.cfg")
		Expect(err).ToNot(HaveOccurred())
		Expect(runner.GetCmds()).To(BeEmpty())
	})
	It("skips the kickstart when asked to", func() {
		Expect(fs.WriteFile("/tmp/NOSAVE_INPUT_KS_FILE", []byte{}, 0644)).To(Succeed())
		Expect(postinstall.SaveLogs(cfg)).To(Succeed())
		_, err := fs.Stat("/mnt/sysroot/root/original-ks.cfg")
		Expect(err).To(HaveOccurred())
		_, err = fs.Stat("/tmp/NOSAVE_INPUT_KS_FILE")
		Expect(err).To(HaveOccurred())
		_, err = fs.Stat("/mnt/sysroot/var/log/anaconda/anaconda.log")
		Expect(err).ToNot(HaveOccurred())
	})
	It("has nothing to do without sources", func() {
		Expect(fs.RemoveAll("/tmp")).To(Succeed())
		Expect(fs.RemoveAll("/run/install")).To(Succeed())
		cfg.PostInstall.Journal = false
		Expect(postinstall.SaveLogs(cfg)).To(Succeed())
		entries, err := fs.ReadDir("/mnt/sysroot/var/log/anaconda")
		Expect(err).ToNot(HaveOccurred())
		Expect(entries).To(BeEmpty())
	})
	It("keeps copying when the journal can't be read", func() {
		runner.ReturnError = errors.New("no journal")
		err := postinstall.SaveLogs(cfg)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("no journal"))
		_, err = fs.Stat("/mnt/sysroot/root/original-ks.cfg")
		Expect(err).ToNot(HaveOccurred())
	})
	It("requires an install path", func() {
		cfg.PostInstall.InstallPath = ""
		Expect(postinstall.SaveLogs(cfg)).NotTo(Succeed())
	})
	It("renders the kickstart snippet", func() {
		s, err := postinstall.Snippet("/usr/bin/anaconda-boot")
		Expect(err).ToNot(HaveOccurred())
		Expect(s).To(ContainSubstring("%post --nochroot\n"))
		Expect(s).To(ContainSubstring(`/usr/bin/anaconda-boot save-logs --install-path "$ANA_INSTALL_PATH"`))
		Expect(s).To(HaveSuffix("%end\n"))
	})
})
