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

// Package cmdline reads the kernel command line the way dracut hooks see it:
// /proc/cmdline followed by every /etc/cmdline.d/*.conf file.
package cmdline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/shlex"

	v1 "github.com/rhinstaller/anaconda-boot/pkg/types/v1"
)

// Arg is a single command line token. Flag is true for bare keys.
type Arg struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value,omitempty"`
	Flag  bool   `yaml:"flag,omitempty"`
}

func (a Arg) String() string {
	if a.Flag {
		return a.Key
	}
	return a.Key + "=" + a.Value
}

// Args is the ordered multimap of boot arguments
type Args []Arg

// Parse tokenizes the given command line, quoted values keep their spaces
func Parse(line string) (Args, error) {
	tokens, err := shlex.Split(line)
	if err != nil {
		return nil, fmt.Errorf("failed parsing command line: %w", err)
	}
	args := make(Args, 0, len(tokens))
	for _, tok := range tokens {
		key, value, found := strings.Cut(tok, "=")
		args = append(args, Arg{Key: key, Value: value, Flag: !found})
	}
	return args, nil
}

// Read loads the kernel command line from cmdlinePath and appends the
// arguments of every *.conf file in confDir. Missing sources are skipped.
func Read(fs v1.FS, cmdlinePath, confDir string) (Args, error) {
	var args Args

	sources := []string{cmdlinePath}
	if confDir != "" {
		confs, err := fs.Glob(filepath.Join(confDir, "*.conf"))
		if err != nil {
			return nil, err
		}
		sort.Strings(confs)
		sources = append(sources, confs...)
	}

	for _, src := range sources {
		if src == "" {
			continue
		}
		data, err := fs.ReadFile(src)
		if os.IsNotExist(err) {
			continue
		} else if err != nil {
			return nil, fmt.Errorf("failed reading %s: %w", src, err)
		}
		parsed, err := Parse(string(data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", src, err)
		}
		args = append(args, parsed...)
	}
	return args, nil
}

// Lookup returns the value of the last occurrence of key
func (a Args) Lookup(key string) (string, bool) {
	for i := len(a) - 1; i >= 0; i-- {
		if a[i].Key == key {
			return a[i].Value, true
		}
	}
	return "", false
}

// Get returns the value of the last occurrence of the first given key that
// is present. Keys are tried in the order given.
func (a Args) Get(keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := a.Lookup(k); ok {
			return v, true
		}
	}
	return "", false
}

// GetAll returns every value of any of the given keys in command line order.
// Bare keys yield the key itself.
func (a Args) GetAll(keys ...string) []string {
	values := []string{}
	for _, arg := range a {
		for _, k := range keys {
			if arg.Key != k {
				continue
			}
			if arg.Flag {
				values = append(values, arg.Key)
			} else {
				values = append(values, arg.Value)
			}
		}
	}
	return values
}

// Has reports whether key is present, with or without a value
func (a Args) Has(key string) bool {
	_, ok := a.Lookup(key)
	return ok
}

func (a Args) String() string {
	parts := make([]string, 0, len(a))
	for _, arg := range a {
		parts = append(parts, arg.String())
	}
	return strings.Join(parts, " ")
}
