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

package driverupdate

import (
	"fmt"
	"io"
	"strings"

	"github.com/jaypipes/ghw"

	"github.com/rhinstaller/anaconda-boot/pkg/constants"
	"github.com/rhinstaller/anaconda-boot/pkg/utils"
)

// DeviceInfo describes a block device offered in the interactive menu
type DeviceInfo struct {
	Device string
	FSType string
	Label  string
	UUID   string
}

func (d DeviceInfo) String() string {
	return fmt.Sprintf("%s %s %s %s", d.Device, d.FSType, d.Label, d.UUID)
}

type DeviceLister func() ([]DeviceInfo, error)

// BlockDevices lists partitions, and disks without partitions, of the
// running system
func BlockDevices() ([]DeviceInfo, error) {
	block, err := ghw.Block(ghw.WithDisableWarnings())
	if err != nil {
		return nil, err
	}
	devices := []DeviceInfo{}
	for _, disk := range block.Disks {
		if len(disk.Partitions) == 0 {
			devices = append(devices, DeviceInfo{Device: "/dev/" + disk.Name})
			continue
		}
		for _, p := range disk.Partitions {
			devices = append(devices, DeviceInfo{
				Device: "/dev/" + p.Name,
				FSType: p.Type,
				Label:  p.Label,
				UUID:   p.UUID,
			})
		}
	}
	return devices, nil
}

type isoItem string

func (i isoItem) String() string { return string(i) }

// Interactive lets the user pick devices and drivers until they continue
// without a selection, then finishes the 'menu' request
func (h Handler) Interactive(in io.Reader, out io.Writer) error {
	devMenu := NewTextMenu(in, out, "DRIVER DISK DEVICES", nil)
	devMenu.Refresher = func() ([]fmt.Stringer, error) {
		devs, err := h.devices()
		if err != nil {
			return nil, err
		}
		items := make([]fmt.Stringer, 0, len(devs))
		for _, d := range devs {
			items = append(items, d)
		}
		return items, nil
	}
	// device and driver menus share the same input stream
	h.menuIn, h.menuOut = devMenu.in, out

	for {
		selected, err := devMenu.Run()
		if err != nil {
			return err
		}
		if len(selected) == 0 {
			break
		}
		for _, s := range selected {
			if err = h.diskMenu(s.(DeviceInfo).Device); err != nil {
				return err
			}
		}
	}
	return h.Finish(constants.DDMenuRequest)
}

func (h Handler) diskMenu(dev string) (err error) {
	opts := []string{}
	if strings.HasSuffix(dev, ".iso") {
		opts = append(opts, "loop")
	}

	cleanup := utils.NewCleanStack()
	defer func() { err = cleanup.Cleanup(err) }()

	mnt, err := h.mount(dev, opts...)
	if err != nil {
		return err
	}
	cleanup.Push(func() error { return h.umount(mnt) })

	repos, err := FindRepos(h.cfg.Fs, mnt, h.cfg.Arch)
	if err != nil {
		return err
	}
	isos, err := FindISOs(h.cfg.Fs, mnt)
	if err != nil {
		return err
	}
	switch {
	case len(repos) > 0:
		return h.repoMenu(repos)
	case len(isos) > 0:
		return h.isoMenu(isos)
	default:
		fmt.Fprintf(h.menuOut, "=== No driver disks found in %s!===\n\n", dev)
		return nil
	}
}

func (h Handler) repoMenu(repos []string) error {
	items := []fmt.Stringer{}
	for _, r := range repos {
		drivers, err := h.List(r)
		if err != nil {
			return err
		}
		for _, d := range drivers {
			items = append(items, d)
		}
	}
	menu := h.subMenu("DRIVERS", items)
	menu.Multi = true
	selected, err := menu.Run()
	if err != nil {
		return err
	}

	saved := map[string]bool{}
	for _, s := range selected {
		d := s.(Driver)
		if !saved[d.Repo] {
			if _, err = h.SaveRepo(d.Repo); err != nil {
				return err
			}
			saved[d.Repo] = true
		}
		if err = h.Extract(d.Source, h.updatesDir()); err != nil {
			return err
		}
		if d.InstallsFiles() {
			if err = utils.AppendLine(h.cfg.Fs, h.packagesFile(), d.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h Handler) isoMenu(isos []string) error {
	items := []fmt.Stringer{}
	for _, i := range isos {
		items = append(items, isoItem(i))
	}
	selected, err := h.subMenu("ISOS", items).Run()
	if err != nil {
		return err
	}
	for _, s := range selected {
		if err = h.diskMenu(s.String()); err != nil {
			return err
		}
	}
	return nil
}

func (h Handler) subMenu(header string, items []fmt.Stringer) *TextMenu {
	return &TextMenu{
		Items:      items,
		Header:     header,
		PageHeight: defaultPageHeight,
		page:       1,
		in:         h.menuIn,
		out:        h.menuOut,
	}
}
