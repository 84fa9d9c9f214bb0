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

package utils_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/twpayne/go-vfs/vfst"

	"github.com/rhinstaller/anaconda-boot/pkg/constants"
	"github.com/rhinstaller/anaconda-boot/pkg/utils"
)

func TestUtilsSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Utils test suite")
}

var _ = Describe("Utils", Label("utils"), func() {
	var fs *vfst.TestFS
	var cleanup func()
	BeforeEach(func() {
		var err error
		fs, cleanup, err = vfst.NewTestFS(map[string]interface{}{
			"/src/a":       "a\n",
			"/src/sub/b":   "b\n",
			"/src/sub/c.x": "c\n",
			"/dst":         &vfst.Dir{Perm: 0755},
		})
		Expect(err).ToNot(HaveOccurred())
	})
	AfterEach(func() {
		cleanup()
	})

	Describe("CleanStack", Label("CleanStack"), func() {
		It("runs jobs in reverse order", func() {
			order := []int{}
			cs := utils.NewCleanStack()
			for i := 1; i <= 3; i++ {
				n := i
				cs.Push(func() error { order = append(order, n); return nil })
			}
			Expect(cs.Cleanup(nil)).To(Succeed())
			Expect(order).To(Equal([]int{3, 2, 1}))
			Expect(cs.IsEmpty()).To(BeTrue())
		})
		It("returns the original error alone when jobs succeed", func() {
			orig := errors.New("original")
			cs := utils.NewCleanStack()
			cs.Push(func() error { return nil })
			Expect(cs.Cleanup(orig)).To(Equal(orig))
		})
		It("merges job errors with the original one", func() {
			cs := utils.NewCleanStack()
			cs.Push(func() error { return errors.New("job") })
			err := cs.Cleanup(errors.New("original"))
			merr, ok := err.(*multierror.Error)
			Expect(ok).To(BeTrue())
			Expect(merr.Len()).To(Equal(2))
		})
		It("pops nothing from an empty stack", func() {
			Expect(utils.NewCleanStack().Pop()).To(BeNil())
		})
	})

	Describe("Files", Label("fs"), func() {
		It("copies a file into a directory", func() {
			Expect(utils.CopyFile(fs, "/src/a", "/dst")).To(Succeed())
			data, err := fs.ReadFile("/dst/a")
			Expect(err).ToNot(HaveOccurred())
			Expect(string(data)).To(Equal("a\n"))
		})
		It("concatenates files in order", func() {
			Expect(utils.ConcatFiles(fs, []string{"/src/a", "/src/sub/b"}, "/dst/ab")).To(Succeed())
			data, err := fs.ReadFile("/dst/ab")
			Expect(err).ToNot(HaveOccurred())
			Expect(string(data)).To(Equal("a\nb\n"))
		})
		It("removes the target when a source can't be read", func() {
			Expect(utils.ConcatFiles(fs, []string{"/src/a", "/src/missing"}, "/dst/ab")).ToNot(Succeed())
			ok, _ := utils.Exists(fs, "/dst/ab")
			Expect(ok).To(BeFalse())
			Expect(utils.CopyFile(fs, "/src/a", "/dst/ab")).To(Succeed())
		})
		It("fails to concatenate nothing", func() {
			Expect(utils.ConcatFiles(fs, []string{}, "/dst/x")).ToNot(Succeed())
		})
		It("copies a tree", func() {
			Expect(utils.CopyDir(fs, "/src", "/dst/copy")).To(Succeed())
			data, err := fs.ReadFile("/dst/copy/sub/b")
			Expect(err).ToNot(HaveOccurred())
			Expect(string(data)).To(Equal("b\n"))
		})
		It("moves a file", func() {
			Expect(utils.MoveFile(fs, "/src/a", "/dst")).To(Succeed())
			ok, _ := utils.Exists(fs, "/src/a")
			Expect(ok).To(BeFalse())
			ok, _ = utils.Exists(fs, "/dst/a")
			Expect(ok).To(BeTrue())
		})
		It("creates sequential directories", func() {
			first, err := utils.MkdirSeq(fs, "/run/install/DD-")
			Expect(err).ToNot(HaveOccurred())
			second, err := utils.MkdirSeq(fs, "/run/install/DD-")
			Expect(err).ToNot(HaveOccurred())
			Expect([]string{first, second}).To(Equal([]string{"/run/install/DD-1", "/run/install/DD-2"}))
		})
		It("writes files atomically", func() {
			Expect(utils.WriteFileAtomic(fs, "/new/dir/file", []byte("data"), constants.FilePerm)).To(Succeed())
			data, err := fs.ReadFile("/new/dir/file")
			Expect(err).ToNot(HaveOccurred())
			Expect(string(data)).To(Equal("data"))
			ok, _ := utils.Exists(fs, "/new/dir/.file.tmp")
			Expect(ok).To(BeFalse())
		})
		It("appends and reads lines", func() {
			Expect(utils.AppendLine(fs, "/tmp/list", "one")).To(Succeed())
			Expect(utils.AppendLine(fs, "/tmp/list", "two\n")).To(Succeed())
			Expect(utils.ReadLines(fs, "/tmp/list")).To(Equal([]string{"one", "two"}))
			Expect(utils.ReadLines(fs, "/tmp/missing")).To(BeEmpty())
		})
		It("finds files by pattern", func() {
			files, err := utils.FindFiles(fs, "/src", "*.x")
			Expect(err).ToNot(HaveOccurred())
			Expect(files).To(Equal([]string{"/src/sub/c.x"}))
			files, err = utils.FindFiles(fs, "/src", "")
			Expect(err).ToNot(HaveOccurred())
			Expect(files).To(ConsistOf("/src/a", "/src/sub/b", "/src/sub/c.x"))
			files, err = utils.FindFiles(fs, "/nowhere", "")
			Expect(err).ToNot(HaveOccurred())
			Expect(files).To(BeEmpty())
		})
		It("removes files only if they exist", func() {
			removed, err := utils.RemoveIfExists(fs, "/src/a")
			Expect(err).ToNot(HaveOccurred())
			Expect(removed).To(BeTrue())
			removed, err = utils.RemoveIfExists(fs, "/src/a")
			Expect(err).ToNot(HaveOccurred())
			Expect(removed).To(BeFalse())
		})
	})

	Describe("Waiting", Label("wait"), func() {
		It("returns once the path shows up", func() {
			go func() {
				defer GinkgoRecover()
				time.Sleep(20 * time.Millisecond)
				Expect(fs.WriteFile("/dst/dev", []byte{}, constants.FilePerm)).To(Succeed())
			}()
			ctx, cancel := utils.ContextWithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			Expect(utils.WaitForPath(ctx, fs, "/dst/dev", 5*time.Millisecond)).To(Succeed())
		})
		It("gives up on timeout", func() {
			ctx, cancel := utils.ContextWithTimeout(context.Background(), 30*time.Millisecond)
			defer cancel()
			Expect(utils.WaitForPath(ctx, fs, "/dst/never", 5*time.Millisecond)).To(MatchError(context.DeadlineExceeded))
		})
		It("stops on condition errors", func() {
			err := utils.WaitFor(context.Background(), time.Millisecond, func() (bool, error) {
				return false, errors.New("broken")
			})
			Expect(err).To(MatchError("broken"))
		})
		It("does not set a deadline for zero timeouts", func() {
			ctx, cancel := utils.ContextWithTimeout(context.Background(), 0)
			defer cancel()
			_, ok := ctx.Deadline()
			Expect(ok).To(BeFalse())
		})
	})
})
