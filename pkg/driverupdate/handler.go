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

// Package driverupdate loads drivers from driver update disks during the
// installer's early boot. It is run once per requested disk or network
// image, and once more for the interactive menu when requested.
package driverupdate

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rhinstaller/anaconda-boot/pkg/constants"
	"github.com/rhinstaller/anaconda-boot/pkg/driverdisk"
	v1 "github.com/rhinstaller/anaconda-boot/pkg/types/v1"
	"github.com/rhinstaller/anaconda-boot/pkg/utils"
)

// SyncFunc copies the contents of the source directory into target
type SyncFunc func(source, target string) error

type Option func(*Handler)

// WithSync sets how driver repositories are saved for the installer
func WithSync(sync SyncFunc) Option {
	return func(h *Handler) {
		h.sync = sync
	}
}

// WithDeviceLister sets how the interactive mode discovers block devices
func WithDeviceLister(lister DeviceLister) Option {
	return func(h *Handler) {
		h.devices = lister
	}
}

// Handler processes driver update disks
type Handler struct {
	cfg     *v1.RunConfig
	sync    SyncFunc
	devices DeviceLister
	menuIn  *bufio.Scanner
	menuOut io.Writer
}

func NewHandler(cfg *v1.RunConfig, opts ...Option) *Handler {
	h := &Handler{
		cfg:     cfg,
		devices: BlockDevices,
	}
	h.sync = func(source, target string) error {
		return utils.SyncData(cfg.Logger, cfg.Fs, source, target)
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

func (h Handler) updatesDir() string {
	return h.cfg.DriverUpdate.UpdatesDir
}

func (h Handler) modulesUpdateDir() string {
	if h.cfg.DriverUpdate.ModulesDir != "" {
		return h.cfg.DriverUpdate.ModulesDir
	}
	return constants.GetModulesUpdateDir(h.cfg.KernelVersion)
}

func (h Handler) packagesFile() string {
	return filepath.Join(h.cfg.DriverUpdate.InstallDir, constants.DDPackagesFile)
}

// HandleDisk processes the driver disk found at devNode for the user
// request (a disk spec or a URL) and marks the request finished
func (h Handler) HandleDisk(mode, request, devNode string) error {
	h.cfg.Logger.Debugf("%s: '%s' found at %s", mode, request, devNode)
	opts := []string{}
	if !strings.HasPrefix(devNode, "/dev") {
		opts = append(opts, "loop")
	}
	err := h.ProcessDriverDisk(devNode, opts...)
	if err != nil {
		return fmt.Errorf("failed processing driver disk %s: %w", devNode, err)
	}
	return h.Finish(request)
}

// HandleNet processes a driver disk image downloaded from url into
// localFile. The image is fetched first if it is not there yet.
func (h Handler) HandleNet(url, localFile string) error {
	if ok, _ := utils.Exists(h.cfg.Fs, localFile); !ok {
		err := utils.MkdirAll(h.cfg.Fs, filepath.Dir(localFile), constants.DirPerm)
		if err != nil {
			return err
		}
		err = h.cfg.Client.GetURL(h.cfg.Logger, url, localFile)
		if err != nil {
			return fmt.Errorf("failed downloading driver disk %s: %w", url, err)
		}
	}
	return h.HandleDisk("--net", url, localFile)
}

// ProcessDriverDisk mounts dev, saves and extracts every driver repository
// on it and recurses into top level ISO images
func (h Handler) ProcessDriverDisk(dev string, opts ...string) (err error) {
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
	for _, repo := range repos {
		if _, err = h.SaveRepo(repo); err != nil {
			return err
		}
		if err = h.ExtractRepo(repo); err != nil {
			return err
		}
	}

	isos, err := FindISOs(h.cfg.Fs, mnt)
	if err != nil {
		return err
	}
	for _, iso := range isos {
		if err = h.ProcessDriverDisk(iso, "loop"); err != nil {
			return err
		}
	}
	return nil
}

// Finish copies the extracted drivers into the running system, loads them,
// and records the request. dd.done is written once every request finished.
func (h Handler) Finish(request string) error {
	modules, err := h.GrabDriverFiles()
	if err != nil {
		return err
	}
	h.LoadDrivers(modules)

	tmpDir := h.cfg.Paths.TmpDir
	h.cfg.Logger.Debugf("marking %s complete", request)
	err = driverdisk.MarkFinished(h.cfg.Fs, tmpDir, request)
	if err != nil {
		return err
	}
	if driverdisk.AllFinished(h.cfg.Fs, tmpDir) {
		return driverdisk.MarkDone(h.cfg.Fs, tmpDir)
	}
	return nil
}

// SaveRepo copies repo to the next free DD-N directory where the installer
// looks for driver repositories later on
func (h Handler) SaveRepo(repo string) (string, error) {
	dir, err := utils.MkdirSeq(h.cfg.Fs, filepath.Join(h.cfg.DriverUpdate.InstallDir, constants.DDRepoPrefix))
	if err != nil {
		return "", err
	}
	h.cfg.Logger.Debugf("save_repo: copying %s to %s", repo, dir)
	return dir, h.sync(repo, dir)
}

// ExtractRepo extracts every driver of repo into the updates directory and
// records the packages carrying modules or firmware
func (h Handler) ExtractRepo(repo string) error {
	drivers, err := h.List(repo)
	if err != nil {
		return err
	}
	for _, d := range drivers {
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

// GrabDriverFiles copies the extracted modules and firmware into the running
// system and returns the names of the copied modules
func (h Handler) GrabDriverFiles() ([]string, error) {
	fs := h.cfg.Fs
	modules, err := utils.FindFiles(fs, filepath.Join(h.updatesDir(), "lib", "modules"), "*.ko*")
	if err != nil {
		return nil, err
	}
	firmware, err := utils.FindFiles(fs, filepath.Join(h.updatesDir(), "lib", "firmware"), "")
	if err != nil {
		return nil, err
	}

	modDir := h.modulesUpdateDir()
	fwDir := h.cfg.DriverUpdate.FirmwareDir
	for _, op := range []struct {
		files []string
		dest  string
		move  bool
	}{
		{modules, modDir, false},
		{firmware, fwDir, false},
		{modules, filepath.Join(h.updatesDir(), modDir), true},
		{firmware, filepath.Join(h.updatesDir(), fwDir), true},
	} {
		if err = transferFiles(fs, op.files, op.dest, op.move); err != nil {
			return nil, err
		}
	}

	names := []string{}
	for _, m := range modules {
		name, _, _ := strings.Cut(filepath.Base(m), ".ko")
		names = append(names, name)
	}
	return names, nil
}

// LoadDrivers refreshes module dependencies and tries to load the given
// modules, failures are only logged
func (h Handler) LoadDrivers(modules []string) {
	h.cfg.Logger.Debugf("load_drivers: %v", modules)
	if out, err := h.cfg.Runner.Run("depmod", "-a"); err != nil {
		h.cfg.Logger.Warnf("depmod failed: %v: %s", err, out)
	}
	if len(modules) == 0 {
		return
	}
	if out, err := h.cfg.Runner.Run("modprobe", append([]string{"-a"}, modules...)...); err != nil {
		h.cfg.Logger.Warnf("modprobe failed: %v: %s", err, out)
	}
}

func (h Handler) mount(dev string, opts ...string) (string, error) {
	mnt, err := utils.MkdirSeq(h.cfg.Fs, filepath.Join(h.cfg.DriverUpdate.MediaDir, constants.DDRepoPrefix))
	if err != nil {
		return "", err
	}
	target, err := h.cfg.Fs.RawPath(mnt)
	if err != nil {
		return "", err
	}
	h.cfg.Logger.Debugf("mounting %s at %s", dev, mnt)
	err = h.cfg.Mounter.Mount(dev, target, "", opts)
	if err != nil {
		return "", fmt.Errorf("failed mounting %s: %w", dev, err)
	}
	return mnt, nil
}

func (h Handler) umount(mnt string) error {
	h.cfg.Logger.Debugf("unmounting %s", mnt)
	target, err := h.cfg.Fs.RawPath(mnt)
	if err != nil {
		return err
	}
	return h.cfg.Mounter.Unmount(target)
}

// transferFiles copies or moves files into destDir, skipping files
// already under destDir
func transferFiles(fs v1.FS, files []string, destDir string, move bool) error {
	err := utils.MkdirAll(fs, destDir, constants.DirPerm)
	if err != nil {
		return err
	}
	for _, f := range files {
		if strings.HasPrefix(f, destDir) {
			continue
		}
		if move {
			err = utils.MoveFile(fs, f, destDir)
		} else {
			err = utils.CopyFile(fs, f, destDir)
		}
		if err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
