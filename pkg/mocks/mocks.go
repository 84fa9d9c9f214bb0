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

package mocks

import (
	"errors"

	v1 "github.com/rhinstaller/anaconda-boot/pkg/types/v1"
)

// FakeCloudInitRunner records the stages it is asked to run
type FakeCloudInitRunner struct {
	ExecStages []string
	Error      bool
	Logger     v1.Logger
}

func NewFakeCloudInitRunner(logger v1.Logger) *FakeCloudInitRunner {
	return &FakeCloudInitRunner{ExecStages: []string{}, Error: false, Logger: logger}
}

func (ci *FakeCloudInitRunner) Run(stage string, args ...string) error {
	ci.Logger.Debugf("cloud-init stage: %s", stage)
	ci.ExecStages = append(ci.ExecStages, stage)
	if ci.Error {
		return errors.New("cloud init failure")
	}
	return nil
}

// FakeHTTPClient records the requested URLs and writes no content
type FakeHTTPClient struct {
	ClientCalls []string
	Error       bool
	Fs          v1.FS
}

func NewFakeHTTPClient(fs v1.FS) *FakeHTTPClient {
	return &FakeHTTPClient{ClientCalls: []string{}, Fs: fs}
}

func (c *FakeHTTPClient) GetURL(log v1.Logger, url string, destination string) error {
	c.ClientCalls = append(c.ClientCalls, url)
	if c.Error {
		return errors.New("download failed")
	}
	if c.Fs != nil {
		return c.Fs.WriteFile(destination, []byte(url), 0644)
	}
	return nil
}

func (c *FakeHTTPClient) WasGetCalledWith(url string) bool {
	for _, c := range c.ClientCalls {
		if c == url {
			return true
		}
	}
	return false
}
