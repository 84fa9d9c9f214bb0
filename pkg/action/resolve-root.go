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

package action

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/rhinstaller/anaconda-boot/pkg/cmdline"
	"github.com/rhinstaller/anaconda-boot/pkg/constants"
	"github.com/rhinstaller/anaconda-boot/pkg/rootdev"
	v1 "github.com/rhinstaller/anaconda-boot/pkg/types/v1"
	"github.com/rhinstaller/anaconda-boot/pkg/utils"
)

// ReadCmdline returns the boot arguments the hooks act on
func ReadCmdline(cfg *v1.RunConfig) (cmdline.Args, error) {
	return cmdline.Read(cfg.Fs, cfg.Paths.Cmdline, cfg.Paths.CmdlineDir)
}

// ResolveRootRun resolves the installer root device from the boot
// arguments, exports it, waits for the device and flags root as ok
func ResolveRootRun(ctx context.Context, cfg *v1.RunConfig) (d rootdev.Decision, err error) {
	d, err = ResolveRoot(cfg)
	if err != nil {
		return d, err
	}
	if err = WaitForRoot(ctx, cfg, d); err != nil {
		return d, err
	}
	return d, SetRootOK(cfg, d)
}

// ResolveRoot computes the root decision and exports it. Root is only
// resolved once per boot, an already exported root is returned as is.
func ResolveRoot(cfg *v1.RunConfig) (rootdev.Decision, error) {
	env, err := ReadRootEnv(cfg)
	if err != nil {
		return rootdev.Decision{}, err
	}
	if root, ok := env[constants.RootEnvKey]; ok {
		cfg.Logger.Debugf("root already resolved to '%s'", root)
		return exportedDecision(root), nil
	}

	args, err := ReadCmdline(cfg)
	if err != nil {
		return rootdev.Decision{}, err
	}
	d := rootdev.Resolve(args)
	if d.Kind == rootdev.Explicit {
		cfg.Logger.Debugf("root=%s given on the command line", d.Value)
		return d, nil
	}
	if d.Warning != "" {
		cfg.Logger.Warn(d.Warning)
	} else if d.Kind == rootdev.AutoCD && d.Source != "" {
		// a disk repo type without a device, root is left to the auto-cd fallback
		cfg.Logger.Debugf("no device given in %s, falling back to %s", d.Source, constants.RootAutoCD)
	}

	if d.NeedsNetwork {
		err = setNeedNet(cfg)
		if err != nil {
			return d, fmt.Errorf("failed flagging network as needed: %w", err)
		}
	}
	cfg.Logger.Infof("Installer root set to %s", d.Value)
	return d, writeRootEnv(cfg, map[string]string{constants.RootEnvKey: d.Value})
}

// WaitForRoot blocks until the root device of an installer root shows up
func WaitForRoot(ctx context.Context, cfg *v1.RunConfig, d rootdev.Decision) error {
	if !d.IsAnaconda() {
		return nil
	}
	ctx, cancel := utils.ContextWithTimeout(ctx, cfg.Root.Timeout)
	defer cancel()

	cfg.Logger.Infof("Waiting for root device %s", cfg.Root.Device)
	err := utils.WaitForPath(ctx, cfg.Fs, cfg.Root.Device, cfg.PollInterval)
	if err != nil {
		return fmt.Errorf("root device %s did not show up: %w", cfg.Root.Device, err)
	}
	return nil
}

// SetRootOK flags root resolution as complete. Explicit roots are left to
// the boot stage that parsed them.
func SetRootOK(cfg *v1.RunConfig, d rootdev.Decision) error {
	if d.Kind == rootdev.Explicit {
		return nil
	}
	env, err := ReadRootEnv(cfg)
	if err != nil {
		return err
	}
	env[constants.RootOKEnvKey] = constants.RootOKValue
	return writeRootEnv(cfg, env)
}

// ReadRootEnv returns the exported root state, empty when nothing was
// exported yet
func ReadRootEnv(cfg *v1.RunConfig) (map[string]string, error) {
	data, err := cfg.Fs.ReadFile(cfg.Root.EnvFile)
	if err != nil {
		if ok, _ := utils.Exists(cfg.Fs, cfg.Root.EnvFile); !ok {
			return map[string]string{}, nil
		}
		return nil, err
	}
	env, err := godotenv.Unmarshal(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed parsing %s: %w", cfg.Root.EnvFile, err)
	}
	return env, nil
}

func writeRootEnv(cfg *v1.RunConfig, env map[string]string) error {
	data, err := godotenv.Marshal(env)
	if err != nil {
		return err
	}
	return utils.WriteFileAtomic(cfg.Fs, cfg.Root.EnvFile, []byte(data+"\n"), constants.FilePerm)
}

func setNeedNet(cfg *v1.RunConfig) error {
	cfg.Logger.Debugf("network required, writing %s", cfg.Root.NeedNetFile)
	err := utils.MkdirAll(cfg.Fs, filepath.Dir(cfg.Root.NeedNetFile), constants.DirPerm)
	if err != nil {
		return err
	}
	return utils.WriteFileAtomic(cfg.Fs, cfg.Root.NeedNetFile, []byte(constants.NeedNetArg+"\n"), constants.FilePerm)
}

func exportedDecision(root string) rootdev.Decision {
	switch {
	case root == constants.RootAutoCD:
		return rootdev.Decision{Kind: rootdev.AutoCD, Value: root}
	case strings.HasPrefix(root, constants.RootNetPrefix):
		return rootdev.Decision{Kind: rootdev.Network, Value: root, NeedsNetwork: true}
	case strings.HasPrefix(root, constants.RootDiskPrefix):
		return rootdev.Decision{Kind: rootdev.Disk, Value: root}
	default:
		return rootdev.Decision{Kind: rootdev.Explicit, Value: root}
	}
}
