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
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/rhinstaller/anaconda-boot/pkg/cmdline"
	"github.com/rhinstaller/anaconda-boot/pkg/constants"
	v1 "github.com/rhinstaller/anaconda-boot/pkg/types/v1"
	"github.com/rhinstaller/anaconda-boot/pkg/utils"
)

// Requests are the driver disks the user asked for on the boot command line
type Requests struct {
	Interactive bool     `yaml:"interactive,omitempty"`
	Net         []string `yaml:"net,omitempty"`
	Disk        []string `yaml:"disk,omitempty"`
}

var netPrefixes = []string{"http:", "https:", "ftp:", "nfs:", "nfs4:"}

// ParseRequests sorts every dd and inst.dd argument into interactive, network
// and disk requests
func ParseRequests(args cmdline.Args) Requests {
	r := Requests{}
	for _, dd := range args.GetAll("dd", "inst.dd") {
		switch {
		case dd == "dd" || dd == "inst.dd":
			r.Interactive = true
		case hasAnyPrefix(dd, netPrefixes...):
			r.Net = append(r.Net, dd)
		case hasAnyPrefix(dd, "cdrom:", "hd:"):
			_, disk, _ := strings.Cut(dd, ":")
			r.Disk = append(r.Disk, disk)
		default:
			r.Disk = append(r.Disk, dd)
		}
	}
	return r
}

// Todo lists every request the driver update handler has to finish
func (r Requests) Todo() []string {
	todo := []string{}
	if r.Interactive {
		todo = append(todo, constants.DDMenuRequest)
	}
	todo = append(todo, r.Net...)
	return append(todo, r.Disk...)
}

// IsEmpty is true when no driver disk was requested
func (r Requests) IsEmpty() bool {
	return !r.Interactive && len(r.Net) == 0 && len(r.Disk) == 0
}

// Write replaces the request files in tmpDir. Request files without
// entries are removed and not recreated.
func (r Requests) Write(fs v1.FS, tmpDir string) error {
	var err error
	for _, f := range []string{constants.DDInteractiveFile, constants.DDNetFile, constants.DDDiskFile, constants.DDTodoFile} {
		if _, e := utils.RemoveIfExists(fs, filepath.Join(tmpDir, f)); e != nil {
			err = multierror.Append(err, e)
		}
	}
	if err != nil {
		return err
	}

	files := map[string][]string{
		constants.DDNetFile:  r.Net,
		constants.DDDiskFile: r.Disk,
		constants.DDTodoFile: r.Todo(),
	}
	if r.Interactive {
		files[constants.DDInteractiveFile] = []string{constants.DDMenuRequest}
	}
	for name, lines := range files {
		if len(lines) == 0 {
			continue
		}
		e := utils.WriteFileAtomic(fs, filepath.Join(tmpDir, name), []byte(strings.Join(lines, "\n")+"\n"), constants.FilePerm)
		if e != nil {
			err = multierror.Append(err, e)
		}
	}
	return err
}

// ReadDiskSpecs returns the whitespace separated disk specs in the dd_disk
// request file, a missing file means no specs
func ReadDiskSpecs(fs v1.FS, tmpDir string) []string {
	data, err := fs.ReadFile(filepath.Join(tmpDir, constants.DDDiskFile))
	if err != nil {
		return []string{}
	}
	return strings.Fields(string(data))
}

// Pending is true while network or interactive requests were made and the
// handler did not flag all requests as done yet
func Pending(fs v1.FS, tmpDir string) bool {
	if done, _ := utils.Exists(fs, filepath.Join(tmpDir, constants.DDDoneFile)); done {
		return false
	}
	for _, f := range []string{constants.DDNetFile, constants.DDInteractiveFile} {
		if ok, _ := utils.Exists(fs, filepath.Join(tmpDir, f)); ok {
			return true
		}
	}
	return false
}

// WaitForDriverDisks blocks until no network or interactive driver disk
// request is pending or the context is done
func WaitForDriverDisks(ctx context.Context, fs v1.FS, tmpDir string, interval time.Duration) error {
	return utils.WaitFor(ctx, interval, func() (bool, error) {
		return !Pending(fs, tmpDir), nil
	})
}

// MarkFinished records request as handled
func MarkFinished(fs v1.FS, tmpDir, request string) error {
	return utils.AppendLine(fs, filepath.Join(tmpDir, constants.DDFinishedFile), request)
}

// AllFinished is true when the set of finished requests equals the set of
// requested ones
func AllFinished(fs v1.FS, tmpDir string) bool {
	finished := toSet(utils.ReadLines(fs, filepath.Join(tmpDir, constants.DDFinishedFile)))
	todo := toSet(utils.ReadLines(fs, filepath.Join(tmpDir, constants.DDTodoFile)))
	if len(finished) != len(todo) {
		return false
	}
	for k := range todo {
		if _, ok := finished[k]; !ok {
			return false
		}
	}
	return true
}

// MarkDone flags all driver disk requests as handled
func MarkDone(fs v1.FS, tmpDir string) error {
	return utils.AppendLine(fs, filepath.Join(tmpDir, constants.DDDoneFile), "true")
}

func toSet(lines []string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, l := range lines {
		set[l] = struct{}{}
	}
	return set
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
