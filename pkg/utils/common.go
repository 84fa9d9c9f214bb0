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

package utils

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/zloylos/grsync"
	"golang.org/x/sys/unix"

	v1 "github.com/rhinstaller/anaconda-boot/pkg/types/v1"
)

// WaitForPath polls the filesystem until path exists or the context is done.
// It returns the context error when giving up.
func WaitForPath(ctx context.Context, fs v1.FS, path string, interval time.Duration) error {
	return WaitFor(ctx, interval, func() (bool, error) {
		return Exists(fs, path)
	})
}

// WaitFor calls cond every interval until it reports true, fails or the
// context is done.
func WaitFor(ctx context.Context, interval time.Duration, cond func() (bool, error)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		ok, err := cond()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ContextWithTimeout returns a context bound to the given timeout, a zero
// timeout means no deadline.
func ContextWithTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}

// RemoveIfExists removes the given file, a missing file is not an error
func RemoveIfExists(fs v1.FS, path string) (bool, error) {
	exists, err := Exists(fs, path, true)
	if err != nil || !exists {
		return false, err
	}
	return true, fs.Remove(path)
}

// GetKernelInfo returns the running kernel release and machine architecture
func GetKernelInfo() (release string, arch string, err error) {
	var uts unix.Utsname
	err = unix.Uname(&uts)
	if err != nil {
		return "", "", err
	}
	return unix.ByteSliceToString(uts.Release[:]), unix.ByteSliceToString(uts.Machine[:]), nil
}

// SyncData rsync's source folder contents to a target folder content,
// both are expected to exist before hand.
func SyncData(log v1.Logger, fs v1.FS, source string, target string, excludes ...string) error {
	if fs != nil {
		if s, err := fs.RawPath(source); err == nil {
			source = s
		}
		if t, err := fs.RawPath(target); err == nil {
			target = t
		}
	}

	if !strings.HasSuffix(source, "/") {
		source = fmt.Sprintf("%s/", source)
	}

	if !strings.HasSuffix(target, "/") {
		target = fmt.Sprintf("%s/", target)
	}

	task := grsync.NewTask(
		source,
		target,
		grsync.RsyncOptions{
			Quiet:   false,
			Archive: true,
			XAttrs:  true,
			ACLs:    true,
			Exclude: excludes,
		},
	)

	quit := make(chan bool)
	go func() {
		for {
			select {
			case <-quit:
				return
			case <-time.After(5 * time.Second):
				state := task.State()
				log.Debugf(
					"progress %.2f / rem. %d / tot. %d / sr. %s",
					state.Progress,
					state.Remain,
					state.Total,
					state.Speed,
				)
			}
		}
	}()

	err := task.Run()
	quit <- true
	if err != nil {
		return fmt.Errorf("%w: %s", err, strings.Join([]string{task.Log().Stderr, task.Log().Stdout}, "\n"))
	}

	return nil
}
