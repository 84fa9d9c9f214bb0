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

package http

import (
	"time"

	"github.com/cavaliergopher/grab/v3"

	v1 "github.com/rhinstaller/anaconda-boot/pkg/types/v1"
)

type Client struct {
	client *grab.Client
}

func NewClient() *Client {
	return &Client{client: grab.NewClient()}
}

// GetURL attempts to download the contents of the given URL to the given destination
func (c Client) GetURL(log v1.Logger, url string, destination string) error {
	req, err := grab.NewRequest(destination, url)
	if err != nil {
		log.Errorf("Failed creating a request to '%s'", url)
		return err
	}

	// start download
	log.Infof("Downloading %v...", req.URL())
	resp := c.client.Do(req)

	// start progress loop
	t := time.NewTicker(500 * time.Millisecond)
	defer t.Stop()

Loop:
	for {
		select {
		case <-t.C:
			log.Debugf("Downloaded %v/%v bytes (%.2f%%)", resp.BytesComplete(), resp.Size(), 100*resp.Progress())
		case <-resp.Done:
			break Loop
		}
	}

	// check for errors
	if err := resp.Err(); err != nil {
		log.Errorf("Download failed: %v", err)
		return err
	}

	log.Infof("Download saved to %v", resp.Filename)
	return nil
}
