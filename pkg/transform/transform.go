// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package transform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/NVIDIA/scrape-relay/pkg/defaults"
	apperrors "github.com/NVIDIA/scrape-relay/pkg/errors"
	"github.com/NVIDIA/scrape-relay/pkg/rules"
	"github.com/NVIDIA/scrape-relay/pkg/topology"
)

// toolPrefix is the name of the external label-matcher binary, suffixed
// by platform architecture.
const toolPrefix = "promql-transform"

// matcherLabels is the ordered subset of topology labels injected as
// matchers. juju_unit is honored only when a rule explicitly carries it.
var matcherLabels = []string{
	topology.LabelModel,
	topology.LabelModelUUID,
	topology.LabelApplication,
	topology.LabelCharm,
	topology.LabelUnit,
}

// availability is the tri-state resolution status of the external tool.
type availability int

const (
	availabilityUnresolved availability = iota
	availabilityAvailable
	availabilityUnavailable
)

// Runner executes the external tool and returns its trimmed stdout.
// It exists so tests can substitute the binary.
type Runner func(ctx context.Context, path string, args []string) (string, error)

// Labeler rewrites alert expressions by invoking the external
// promql-transform tool to inject topology label matchers.
//
// The tool is resolved at most once per Labeler lifetime: once found
// unavailable, the Labeler becomes a permanent pass-through and never
// re-probes. Individual invocation failures and timeouts leave that one
// expression unchanged and are logged at debug; they never escalate.
type Labeler struct {
	resourceDir string
	timeout     time.Duration
	run         Runner

	// resolution happens at most once; Apply is called from concurrent
	// HTTP handlers sharing one Labeler.
	resolveOnce sync.Once
	state       availability
	path        string
}

// Option configures a Labeler.
type Option func(*Labeler)

// WithResourceDir sets the directory searched for the platform binary
// before falling back to PATH lookup.
func WithResourceDir(dir string) Option {
	return func(l *Labeler) { l.resourceDir = dir }
}

// WithTimeout overrides the per-invocation deadline.
func WithTimeout(d time.Duration) Option {
	return func(l *Labeler) { l.timeout = d }
}

// WithRunner overrides the tool execution function.
func WithRunner(run Runner) Option {
	return func(l *Labeler) { l.run = run }
}

// NewLabeler creates a Labeler with the default tool resolution and
// invocation timeout.
func NewLabeler(opts ...Option) *Labeler {
	l := &Labeler{
		timeout: defaults.TransformTimeout,
		run:     execRunner,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ToolName returns the architecture-qualified binary name resolved by
// this platform.
func ToolName() string {
	return fmt.Sprintf("%s-%s", toolPrefix, runtime.GOARCH)
}

// Apply rewrites the expression of every rule in every group with
// label matchers derived from that rule's own topology labels. When the
// tool is unavailable the input is returned unmodified.
func (l *Labeler) Apply(ctx context.Context, rf rules.RuleFile) rules.RuleFile {
	if l.resolve() == availabilityUnavailable {
		return rf
	}
	for gi := range rf.Groups {
		for ri := range rf.Groups[gi].Rules {
			rule := &rf.Groups[gi].Rules[ri]
			rule.Expr = l.applyOne(ctx, rule.Expr, rule.Labels)
		}
	}
	return rf
}

// applyOne rewrites a single expression, falling back to the original
// on any failure.
func (l *Labeler) applyOne(ctx context.Context, expr string, labels map[string]string) string {
	args := make([]string, 0, len(matcherLabels)+1)
	for _, name := range matcherLabels {
		if value, ok := labels[name]; ok {
			args = append(args, fmt.Sprintf("--label-matcher=%s=%s", name, value))
		}
	}
	if len(args) == 0 {
		return expr
	}
	args = append(args, expr)

	runCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	out, err := l.run(runCtx, l.path, args)
	if err != nil {
		slog.Debug("label matcher injection failed, keeping original expression",
			"expr", expr,
			"error", runError(runCtx, err),
		)
		return expr
	}
	return out
}

// runError classifies a failed tool invocation: deadline overruns get
// the timeout code, everything else is a plain tool failure.
func runError(ctx context.Context, err error) error {
	code := apperrors.ErrCodeToolFailure
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		code = apperrors.ErrCodeTimeout
	}
	return apperrors.Wrap(code, "transform tool invocation failed", err)
}

// resolve locates the tool binary once and caches the result for the
// lifetime of the Labeler. Safe for concurrent callers.
func (l *Labeler) resolve() availability {
	l.resolveOnce.Do(func() {
		name := ToolName()
		if l.resourceDir != "" {
			candidate := filepath.Join(l.resourceDir, name)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				l.path = candidate
				l.state = availabilityAvailable
				return
			}
		}
		if path, err := exec.LookPath(name); err == nil {
			l.path = path
			l.state = availabilityAvailable
			return
		}

		slog.Debug("skipping injection of topology label matchers",
			"tool", name,
			"error", apperrors.New(apperrors.ErrCodeToolUnavailable,
				"transform tool not found in resource dir or PATH"),
		)
		l.state = availabilityUnavailable
	})
	return l.state
}

// execRunner is the production Runner.
func execRunner(ctx context.Context, path string, args []string) (string, error) {
	out, err := exec.CommandContext(ctx, path, args...).Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
