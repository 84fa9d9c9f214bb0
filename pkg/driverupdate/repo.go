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
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/rhinstaller/anaconda-boot/pkg/constants"
	v1 "github.com/rhinstaller/anaconda-boot/pkg/types/v1"
	"github.com/rhinstaller/anaconda-boot/pkg/utils"
)

// Driver is a single driver package as listed by dd_list
type Driver struct {
	Source      string
	Name        string
	Flags       string
	Description string
	Repo        string
}

func (d Driver) String() string {
	return fmt.Sprintf("%s %s", d.Name, d.Description)
}

// InstallsFiles is true for drivers that ship kernel modules or firmware
func (d Driver) InstallsFiles() bool {
	return strings.Contains(d.Flags, "modules") || strings.Contains(d.Flags, "firmwares")
}

// ParseDriverList parses dd_list output, records are separated by '---'
// lines and hold source, name, flags and description lines
func ParseDriverList(out, repo string) []Driver {
	drivers := []Driver{}
	for _, block := range strings.Split(out, "\n---\n") {
		if block == "" {
			continue
		}
		fields := strings.SplitN(block, "\n", 4)
		d := Driver{Repo: repo}
		for i, f := range fields {
			switch i {
			case 0:
				d.Source = f
			case 1:
				d.Name = f
			case 2:
				d.Flags = f
			case 3:
				d.Description = f
			}
		}
		drivers = append(drivers, d)
	}
	return drivers
}

// List returns the drivers in the repository at path that apply to the
// running kernel and installer
func (h Handler) List(path string) ([]Driver, error) {
	h.cfg.Logger.Debugf("dd_list: listing %s", path)
	out, err := h.cfg.Runner.Run(
		constants.DDListCmd, "-d", path, "-k", h.cfg.KernelVersion, "-a", h.cfg.DriverUpdate.AnacondaVersion,
	)
	if err != nil {
		return nil, fmt.Errorf("failed listing drivers in %s: %w", path, err)
	}
	drivers := ParseDriverList(string(out), path)
	names := []string{}
	for _, d := range drivers {
		names = append(names, d.Name)
	}
	h.cfg.Logger.Debugf("dd_list: found drivers: %s", strings.Join(names, " "))
	return drivers, nil
}

// Extract unpacks the modules and firmware of the rpm into outDir
func (h Handler) Extract(rpm, outDir string) error {
	h.cfg.Logger.Debugf("dd_extract: extracting %s", rpm)
	_, err := h.cfg.Runner.Run(
		constants.DDExtractCmd, "-blmf", "-r", rpm, "-d", outDir, "-k", h.cfg.KernelVersion,
	)
	if err != nil {
		return fmt.Errorf("failed extracting %s: %w", rpm, err)
	}
	return nil
}

// FindRepos returns every driver disk repository under mnt, that is any
// rpms/<arch> directory next to an rhdd3 marker file
func FindRepos(vfs v1.FS, mnt, arch string) ([]string, error) {
	repos := []string{}
	err := utils.WalkDirFs(vfs, mnt, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		marker, _ := utils.Exists(vfs, filepath.Join(path, constants.DDRepoMarker))
		if !marker {
			return nil
		}
		repo := filepath.Join(path, "rpms", arch)
		if ok, _ := utils.IsDir(vfs, repo); ok {
			repos = append(repos, repo)
		}
		return nil
	})
	return repos, err
}

// FindISOs returns the .iso files at the top level of mnt
func FindISOs(fs v1.FS, mnt string) ([]string, error) {
	entries, err := fs.ReadDir(mnt)
	if err != nil {
		return nil, err
	}
	isos := []string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(e.Name()), ".iso") {
			isos = append(isos, filepath.Join(mnt, e.Name()))
		}
	}
	return isos, nil
}
