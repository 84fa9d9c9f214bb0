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

package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/sanity-io/litter"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/twpayne/go-vfs"

	"github.com/rhinstaller/anaconda-boot/pkg/config"
	"github.com/rhinstaller/anaconda-boot/pkg/constants"
	v1 "github.com/rhinstaller/anaconda-boot/pkg/types/v1"
)

// Keys lists every configuration key, environment overrides are bound for
// each of them
var Keys = []string{
	"cmdline-path", "cmdline-dir", "tmp-dir", "run-dir", "rules-file",
	"poll-interval", "cloud-init-paths",
	"driverdisk.oem-spec", "driverdisk.initqueue", "driverdisk.handler", "driverdisk.timeout",
	"root.device", "root.timeout", "root.env-file", "root.neednet-file",
	"driver-updates.anaconda-version", "driver-updates.updates-dir", "driver-updates.install-dir",
	"driver-updates.media-dir", "driver-updates.modules-dir", "driver-updates.firmware-dir",
	"driver-updates.syslog",
	"post-install.install-path", "post-install.logs", "post-install.kickstart", "post-install.journal",
}

// FlagKeys maps command line flag names to the configuration key they set
type FlagKeys map[string]string

// ReadConfigRun loads the configuration from configDir, config.d drop-ins,
// the environment and the flags set on the command line, in increasing
// order of precedence
func ReadConfigRun(configDir string, flags *pflag.FlagSet, keys FlagKeys, opts ...config.GenericOptions) (*v1.RunConfig, error) {
	cfg := config.NewRunConfig(append([]config.GenericOptions{config.WithFs(vfs.OSFS)}, opts...)...)
	if cfg == nil {
		return nil, fmt.Errorf("failed initializing configuration")
	}
	configLogger(cfg.Logger, cfg.Fs, flags)

	v := viper.New()
	v.SetConfigType("yaml")

	cfgFile := filepath.Join(configDir, constants.ConfigFile)
	if exists, _ := fileExists(cfg.Fs, cfgFile); exists {
		if err := mergeFile(v, cfg.Fs, cfgFile); err != nil {
			return nil, err
		}
	}

	// merge every yaml file of config.d in lexical order
	dropins, _ := cfg.Fs.Glob(filepath.Join(configDir, constants.ConfigDropinDir, "*.yaml"))
	sort.Strings(dropins)
	for _, f := range dropins {
		if err := mergeFile(v, cfg.Fs, f); err != nil {
			return nil, err
		}
	}

	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	for _, k := range Keys {
		if err := v.BindEnv(k); err != nil {
			return nil, err
		}
	}

	if err := bindGivenFlags(v, flags, keys); err != nil {
		return nil, err
	}

	err := v.Unmarshal(cfg, setDecoder, decodeHook)
	if err != nil {
		cfg.Logger.Warnf("error unmarshalling config: %s", err)
		return nil, err
	}

	err = cfg.Sanitize()
	cfg.Logger.Debugf("Full config loaded: %s", litter.Sdump(cfg.Paths, cfg.DriverDisk, cfg.Root, cfg.DriverUpdate, cfg.PostInstall))
	return cfg, err
}

func mergeFile(v *viper.Viper, fs v1.FS, path string) error {
	f, err := fs.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err = v.MergeConfig(f); err != nil {
		return fmt.Errorf("failed reading config %s: %w", path, err)
	}
	return nil
}

// bindGivenFlags binds only the flags the user actually set, defaults of
// unset flags must not override configuration files
func bindGivenFlags(v *viper.Viper, flagSet *pflag.FlagSet, keys FlagKeys) error {
	if flagSet == nil {
		return nil
	}
	var err error
	flagSet.VisitAll(func(f *pflag.Flag) {
		key, ok := keys[f.Name]
		if !ok || !f.Changed || err != nil {
			return
		}
		err = v.BindPFlag(key, f)
	})
	return err
}

func configLogger(log v1.Logger, fs v1.FS, flags *pflag.FlagSet) {
	if flags == nil {
		return
	}
	if debug, _ := flags.GetBool("debug"); debug {
		log.SetLevel(v1.DebugLevel())
	}

	var outputs []io.Writer
	if quiet, _ := flags.GetBool("quiet"); !quiet {
		outputs = append(outputs, os.Stdout)
	}
	if logfile, _ := flags.GetString("logfile"); logfile != "" {
		f, err := fs.OpenFile(logfile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, constants.FilePerm)
		if err != nil {
			log.Errorf("Could not open %s for logging to file: %s", logfile, err.Error())
		} else {
			outputs = append(outputs, f)
		}
	}
	log.SetOutput(io.MultiWriter(outputs...))
}

func fileExists(fs v1.FS, path string) (bool, error) {
	_, err := fs.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func setDecoder(config *mapstructure.DecoderConfig) {
	// Make sure we zero fields before applying them, this is relevant for slices
	// so we do not merge with any already present value and directly apply whatever
	// we got form configs.
	config.ZeroFields = true
}

var decodeHook = viper.DecodeHook(
	mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	),
)
