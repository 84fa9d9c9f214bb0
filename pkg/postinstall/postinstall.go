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

// Package postinstall preserves the installer logs and the input kickstart
// in the freshly installed system.
package postinstall

import (
	"bytes"
	"fmt"
	"path/filepath"
	"text/template"

	"github.com/hashicorp/go-multierror"

	"github.com/rhinstaller/anaconda-boot/pkg/constants"
	v1 "github.com/rhinstaller/anaconda-boot/pkg/types/v1"
	"github.com/rhinstaller/anaconda-boot/pkg/utils"
)

// SaveLogs copies installer logs and the original kickstart into the system
// mounted at cfg.PostInstall.InstallPath. Missing sources are skipped; copy
// failures are collected and returned once everything was attempted.
func SaveLogs(cfg *v1.RunConfig) error {
	root := cfg.PostInstall.InstallPath
	if root == "" {
		return fmt.Errorf("no install path given, %s is not set", constants.InstallPathEnv)
	}

	var errs error
	tmpDir := cfg.Paths.TmpDir
	if skip, err := consumeSentinel(cfg.Fs, filepath.Join(tmpDir, constants.NoSaveLogsFile)); err != nil {
		errs = multierror.Append(errs, err)
	} else if skip {
		cfg.Logger.Infof("%s found, not saving installer logs", constants.NoSaveLogsFile)
	} else if err = saveLogs(cfg, root); err != nil {
		errs = multierror.Append(errs, err)
	}

	if skip, err := consumeSentinel(cfg.Fs, filepath.Join(tmpDir, constants.NoSaveInputKSFile)); err != nil {
		errs = multierror.Append(errs, err)
	} else if skip {
		cfg.Logger.Infof("%s found, not saving the input kickstart", constants.NoSaveInputKSFile)
	} else if err = saveKickstart(cfg, root); err != nil {
		errs = multierror.Append(errs, err)
	}
	return errs
}

// consumeSentinel reports whether the sentinel file existed and removes it
func consumeSentinel(fs v1.FS, path string) (bool, error) {
	return utils.RemoveIfExists(fs, path)
}

func saveLogs(cfg *v1.RunConfig, root string) error {
	fs := cfg.Fs
	logDir := filepath.Join(root, constants.AnacondaLogDir)
	err := utils.MkdirAll(fs, logDir, constants.DirPerm)
	if err != nil {
		return err
	}

	var errs error
	tmpDir := cfg.Paths.TmpDir
	for _, log := range cfg.PostInstall.Logs {
		src := filepath.Join(tmpDir, log)
		if ok, _ := utils.Exists(fs, src); !ok {
			continue
		}
		if err = utils.CopyFile(fs, src, logDir); err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	preLogs := filepath.Join(tmpDir, constants.PreAnacondaLogs)
	if ok, _ := utils.IsDir(fs, preLogs); ok {
		if err = utils.CopyDir(fs, preLogs, filepath.Join(logDir, constants.PreAnacondaLogs)); err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	scripts, err := fs.Glob(filepath.Join(tmpDir, constants.KSScriptLogGlob))
	if err != nil {
		errs = multierror.Append(errs, err)
	}
	for _, s := range scripts {
		if err = utils.CopyFile(fs, s, logDir); err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	if cfg.PostInstall.Journal {
		out, err := cfg.Runner.Run("journalctl", "-b")
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("failed reading the journal: %w", err))
		} else if err = fs.WriteFile(filepath.Join(logDir, constants.JournalLogFile), out, constants.PrivateLogPerm); err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	entries, err := fs.ReadDir(logDir)
	if err != nil {
		return multierror.Append(errs, err)
	}
	for _, e := range entries {
		if !e.Mode().IsRegular() {
			continue
		}
		if err = fs.Chmod(filepath.Join(logDir, e.Name()), constants.PrivateLogPerm); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs
}

func saveKickstart(cfg *v1.RunConfig, root string) error {
	src := cfg.PostInstall.KickstartSrc
	if ok, _ := utils.Exists(cfg.Fs, src); !ok {
		return nil
	}
	dest := filepath.Join(root, constants.OriginalKSFile)
	err := utils.MkdirAll(cfg.Fs, filepath.Dir(dest), constants.DirPerm)
	if err != nil {
		return err
	}
	cfg.Logger.Debugf("Copying kickstart %s to %s", src, dest)
	return utils.CopyFile(cfg.Fs, src, dest)
}

var snippet = template.Must(template.New("post").Parse(`# Preserve installer logs and the input kickstart in the installed system
%post --nochroot
{{ .Binary }} save-logs --install-path "${{ .InstallPathEnv }}"
%end
`))

// Snippet returns the kickstart %post section that runs SaveLogs through
// the given binary
func Snippet(binary string) (string, error) {
	var buf bytes.Buffer
	err := snippet.Execute(&buf, struct {
		Binary         string
		InstallPathEnv string
	}{binary, constants.InstallPathEnv})
	return buf.String(), err
}
