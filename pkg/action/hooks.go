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
	"io"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/spectrocloud-labs/herd"

	"github.com/rhinstaller/anaconda-boot/pkg/constants"
	"github.com/rhinstaller/anaconda-boot/pkg/rootdev"
	v1 "github.com/rhinstaller/anaconda-boot/pkg/types/v1"
	"github.com/rhinstaller/anaconda-boot/pkg/utils"
)

// Boot hook operations, in execution order
const (
	OpParseDD     = "dd-parse"
	OpResolveRoot = "root-resolve"
	OpWaitDD      = "dd-wait"
	OpGenRules    = "dd-rules"
	OpStages      = "stages"
	OpWaitForRoot = "root-wait"
	OpRootOK      = "root-ok"
)

// HooksRun runs every boot hook as a chain of herd operations
type HooksRun struct {
	cfg  *v1.RunConfig
	root rootdev.Decision
	g    *herd.Graph
}

// NewHooksRun builds the hook graph for the given configuration
func NewHooksRun(cfg *v1.RunConfig) (*HooksRun, error) {
	h := &HooksRun{cfg: cfg, g: herd.DAG()}

	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{OpParseDD, func(_ context.Context) error {
			_, err := ParseDDRun(h.cfg)
			return err
		}},
		{OpResolveRoot, func(_ context.Context) error {
			d, err := ResolveRoot(h.cfg)
			h.root = d
			return err
		}},
		{OpWaitDD, func(ctx context.Context) error {
			return WaitForDriverDisksRun(ctx, h.cfg)
		}},
		{OpGenRules, func(_ context.Context) error {
			_, err := GenRulesRun(h.cfg)
			return err
		}},
		{OpStages, func(_ context.Context) error {
			return RunStage(h.cfg, constants.HooksStage)
		}},
		{OpWaitForRoot, func(ctx context.Context) error {
			return WaitForRoot(ctx, h.cfg, h.root)
		}},
		{OpRootOK, func(_ context.Context) error {
			return SetRootOK(h.cfg, h.root)
		}},
	}

	prev := ""
	for _, s := range steps {
		opts := []herd.OpOption{herd.WithCallback(s.fn)}
		if prev != "" {
			opts = append(opts, herd.WithDeps(prev))
		}
		if err := h.g.Add(s.name, opts...); err != nil {
			return nil, fmt.Errorf("failed adding %s to the hooks graph: %w", s.name, err)
		}
		prev = s.name
	}
	return h, nil
}

// Run executes the hooks. An operation only runs once its predecessor
// succeeded.
func (h *HooksRun) Run(ctx context.Context) error {
	h.cfg.Logger.Info("Running boot hooks")
	err := h.g.Run(ctx)
	// failed operations only record their error in the graph
	for _, layer := range h.g.Analyze() {
		for _, op := range layer {
			if op.Error != nil {
				err = multierror.Append(err, fmt.Errorf("%s: %w", op.Name, op.Error))
			}
		}
	}
	if err != nil {
		return err
	}
	h.cfg.Logger.Info("Boot hooks done")
	return nil
}

// Root is the root decision taken while running the hooks
func (h *HooksRun) Root() rootdev.Decision {
	return h.root
}

// WriteDAG prints the operations layer by layer without running them
func (h *HooksRun) WriteDAG(w io.Writer) error {
	for i, layer := range h.g.Analyze() {
		names := []string{}
		for _, op := range layer {
			names = append(names, op.Name)
		}
		_, err := fmt.Fprintf(w, "%d. %s\n", i+1, strings.Join(names, ", "))
		if err != nil {
			return err
		}
	}
	return nil
}

// RunStage runs the given yip stage from every configured path that exists
func RunStage(cfg *v1.RunConfig, stage string) error {
	paths := []string{}
	for _, p := range cfg.CloudInitPaths {
		if ok, _ := utils.Exists(cfg.Fs, p); ok {
			paths = append(paths, p)
			continue
		}
		cfg.Logger.Debugf("skipping missing stage path %s", p)
	}
	if len(paths) == 0 {
		return nil
	}
	cfg.Logger.Infof("Running stage %s", stage)
	return cfg.CloudInitRunner.Run(stage, paths...)
}
