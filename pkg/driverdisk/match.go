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
	"errors"
	"fmt"
	"strings"
)

var ErrNoMatch = errors.New("no udev match for disk spec")

// Matcher turns a disk spec into a udev match expression
type Matcher interface {
	Match(spec string) (string, error)
}

// UdevMatcher implements the dracut udevmatch conventions
type UdevMatcher struct{}

func NewUdevMatcher() *UdevMatcher {
	return &UdevMatcher{}
}

const fullUUIDLen = 36

func (m UdevMatcher) Match(spec string) (string, error) {
	key, value, found := strings.Cut(spec, "=")
	if found && value != "" {
		switch key {
		case "UUID":
			return uuidMatch("ID_FS_UUID", value), nil
		case "PARTUUID":
			return uuidMatch("ID_PART_ENTRY_UUID", value), nil
		case "LABEL":
			return fmt.Sprintf(`ENV{ID_FS_LABEL}=="%s"`, value), nil
		case "PARTLABEL":
			return fmt.Sprintf(`ENV{ID_PART_ENTRY_NAME}=="%s"`, value), nil
		}
	}
	if name, ok := strings.CutPrefix(spec, "/dev/"); ok && name != "" {
		if strings.Contains(name, "/") {
			return fmt.Sprintf(`SYMLINK=="%s"`, name), nil
		}
		return fmt.Sprintf(`KERNEL=="%s"`, name), nil
	}
	return "", fmt.Errorf("%w: '%s'", ErrNoMatch, spec)
}

// uuidMatch matches full UUIDs exactly and shorter ones as a prefix
func uuidMatch(env, value string) string {
	if len(value) < fullUUIDLen {
		return fmt.Sprintf(`ENV{%s}=="%s*"`, env, value)
	}
	return fmt.Sprintf(`ENV{%s}=="%s"`, env, value)
}
