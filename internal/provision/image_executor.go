// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path"
	"path/filepath"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/invowk/dashboot/internal/container"
	"github.com/invowk/dashboot/internal/launch"
	"github.com/invowk/dashboot/internal/shell"
	"github.com/invowk/dashboot/internal/trust"
)

const (
	// stageDir holds generated files inside the build context.
	stageDir = ".dashboot"
	// appContextDir holds the application sources inside the build context,
	// apart from the staged files and the Dockerfile.
	appContextDir = "app"
	// DefaultImageRepository names images built without an explicit tag.
	DefaultImageRepository = "dashboard"
)

// Compile-time interface checks
var (
	_ ImageTarget = (*ImageExecutor)(nil)
	_ Builder     = (*ImageExecutor)(nil)
	_ Prober      = (*ImageExecutor)(nil)
	_ StepAware   = (*ImageExecutor)(nil)
)

type (
	// ImageExecutor realizes steps as Dockerfile instructions.
	//
	// Without an engine it only renders: the signing key and generated files are
	// produced by RUN instructions so the Dockerfile builds on its own. With an
	// engine it stages the application context, fetches and verifies the key
	// itself, builds the image and probes it.
	ImageExecutor struct {
		df        *Dockerfile
		milestone State
		engine    container.Engine
		fetcher   trust.Fetcher
		opts      ImageOptions
		staged    map[string][]byte
		builtTag  string
	}

	// ImageOptions configures an ImageExecutor.
	ImageOptions struct {
		Base    string
		Workdir string
		// ContextDir is the application source directory.
		ContextDir string
		// Tag names the built image; a cache-keyed dashboard:<hash> tag is used when empty.
		Tag          string
		NoCache      bool
		ForceRebuild bool
		// Env holds NAME=value pairs for the probe container.
		Env    []string
		Stdout io.Writer
		Stderr io.Writer
	}

	// ImageExecutorOption configures a live ImageExecutor.
	ImageExecutorOption func(*ImageExecutor)
)

// WithEngine enables building and probing with the given container engine.
func WithEngine(e container.Engine) ImageExecutorOption {
	return func(x *ImageExecutor) {
		x.engine = e
	}
}

// WithFetcher enables fetching and verifying the signing key before the build.
func WithFetcher(f trust.Fetcher) ImageExecutorOption {
	return func(x *ImageExecutor) {
		x.fetcher = f
	}
}

// NewImageExecutor creates an ImageExecutor. Without options it renders only.
func NewImageExecutor(opts ImageOptions, xopts ...ImageExecutorOption) *ImageExecutor {
	if opts.Stdout == nil {
		opts.Stdout = io.Discard
	}
	if opts.Stderr == nil {
		opts.Stderr = io.Discard
	}
	x := &ImageExecutor{
		df:     NewDockerfile(opts.Base, opts.Workdir),
		opts:   opts,
		staged: make(map[string][]byte),
	}
	for _, o := range xopts {
		o(x)
	}
	return x
}

// Dockerfile returns the rendered Dockerfile so far.
func (x *ImageExecutor) Dockerfile() string {
	return x.df.String()
}

// Tag returns the tag of the built image, or "" before Build.
func (x *ImageExecutor) Tag() string {
	return x.builtTag
}

// BeginStep starts a new Dockerfile section when the milestone changes.
func (x *ImageExecutor) BeginStep(step Step) {
	if step.Milestone != x.milestone {
		x.milestone = step.Milestone
		x.df.Comment(step.Milestone, step.Milestone.String())
	}
}

// Run adds a RUN instruction.
func (x *ImageExecutor) Run(_ context.Context, line string) error {
	x.df.Run(x.milestone, line)
	return nil
}

// WriteFile stages content and copies it to path when live; when rendering it
// writes the file with printf so the Dockerfile needs no extra context.
func (x *ImageExecutor) WriteFile(_ context.Context, target string, content []byte) error {
	if !path.IsAbs(target) {
		return fmt.Errorf("image file path %q must be absolute", target)
	}
	if x.live() {
		name := x.stage(path.Base(target), content)
		x.df.Copy(x.milestone, name, target)
		return nil
	}

	for _, line := range shell.WriteFileLines(target, content) {
		x.df.Run(x.milestone, line)
	}
	return nil
}

// ImportKey establishes trust in the signing key inside the image.
func (x *ImageExecutor) ImportKey(ctx context.Context, imp trust.Import) error {
	if err := imp.Validate(); err != nil {
		return err
	}

	if x.fetcher == nil {
		fetch := shell.Command{"wget", "-qO-", imp.URL}
		var sink shell.Command
		if imp.Mode.Scoped() {
			sink = shell.Command{"gpg", "--dearmor", "-o", imp.KeyringPath}
		} else {
			sink = shell.Command{"apt-key", "add", "-"}
		}
		x.df.Run(x.milestone, shell.Pipeline{fetch, sink}.String())
		return nil
	}

	key, err := trust.Fetch(ctx, x.fetcher, imp)
	if err != nil {
		return err
	}
	if imp.Mode.Scoped() {
		name := x.stage(path.Base(imp.KeyringPath), key.Keyring)
		x.df.Copy(x.milestone, name, imp.KeyringPath)
		return nil
	}

	data := key.Armored
	if len(data) == 0 {
		data = key.Keyring
	}
	name := x.stage("signing-key.asc", data)
	tmp := "/tmp/signing-key.asc"
	x.df.Copy(x.milestone, name, tmp)
	x.df.Run(x.milestone, shell.AndThen("apt-key add "+tmp, "rm -f "+tmp))
	return nil
}

// SetEnv adds ENV instructions.
func (x *ImageExecutor) SetEnv(_ context.Context, vars []launch.Var) error {
	x.df.Env(x.milestone, vars)
	return nil
}

// CopyIn adds a COPY instruction from the application context. Live builds
// copy from the application subdirectory of the staged build context.
func (x *ImageExecutor) CopyIn(_ context.Context, src, dst string) error {
	if !x.live() {
		x.df.Copy(x.milestone, src, dst)
		return nil
	}
	if src != "." {
		if _, err := os.Stat(filepath.Join(x.opts.ContextDir, src)); err != nil {
			return fmt.Errorf("build context: %w", err)
		}
	}
	x.df.Copy(x.milestone, path.Join(appContextDir, src), dst)
	return nil
}

// Declare adds EXPOSE and CMD from the launch contract.
func (x *ImageExecutor) Declare(_ context.Context, c launch.Contract) error {
	if err := c.Validate(); err != nil {
		return err
	}
	x.df.Expose(x.milestone, c.Port)
	return x.df.Cmd(x.milestone, c.Argv())
}

// Build stages the context and builds the image, reusing a cached image with
// the same content key unless ForceRebuild is set.
func (x *ImageExecutor) Build(ctx context.Context) (string, error) {
	if x.engine == nil {
		return "", errors.New("no container engine configured")
	}

	buildCtx, cleanup, err := x.prepareBuildContext()
	if err != nil {
		return "", err
	}
	defer cleanup()

	logger := log.FromContext(ctx)
	if v, err := x.engine.Version(ctx); err == nil {
		logger.Debug("container engine", "engine", x.engine.Name(), "version", v)
	}

	tag := x.opts.Tag
	if tag == "" {
		key, err := x.cacheKey(buildCtx)
		if err != nil {
			return "", fmt.Errorf("failed to calculate cache key: %w", err)
		}
		tag = DefaultImageRepository + ":" + key[:12]

		exists, _ := x.engine.ImageExists(ctx, tag) //nolint:errcheck // Error treated as "not found"
		switch {
		case exists && !x.opts.ForceRebuild && !x.opts.NoCache:
			logger.Debug("reusing cached image", "tag", tag)
			x.builtTag = tag
			return tag, nil
		case exists:
			// The rebuild takes over the tag; drop the old image instead of leaving it dangling.
			if err := x.engine.RemoveImage(ctx, tag, true); err != nil {
				logger.Warn("failed to remove cached image", "tag", tag, "error", err)
			}
		}
	}

	err = x.engine.Build(ctx, container.BuildOptions{
		ContextDir: buildCtx,
		Dockerfile: "Dockerfile",
		Tag:        tag,
		NoCache:    x.opts.NoCache || x.opts.ForceRebuild,
		Stdout:     x.opts.Stdout,
		Stderr:     x.opts.Stderr,
	})
	if err != nil {
		return "", err
	}

	x.builtTag = tag
	return tag, nil
}

// Probe runs argv in a throwaway container of the built image.
func (x *ImageExecutor) Probe(ctx context.Context, argv []string) (string, error) {
	if x.engine == nil || x.builtTag == "" {
		return "", ErrNotBuilt
	}

	var out bytes.Buffer
	res, err := x.engine.Run(ctx, container.RunOptions{
		Image:   x.builtTag,
		Command: argv,
		Env:     x.opts.Env,
		Remove:  true,
		Stdout:  &out,
		Stderr:  x.opts.Stderr,
	})
	if err != nil {
		return "", err
	}
	if res.Error != nil {
		return "", res.Error
	}
	if res.ExitCode != 0 {
		return out.String(), &ProbeError{Argv: argv, ExitCode: res.ExitCode}
	}
	return out.String(), nil
}

func (x *ImageExecutor) live() bool {
	return x.engine != nil || x.fetcher != nil
}

// stage records a generated file and returns its path inside the build context.
func (x *ImageExecutor) stage(name string, content []byte) string {
	rel := path.Join(stageDir, name)
	x.staged[rel] = content
	return rel
}

// cacheKey hashes the Dockerfile, the application context and the staged files.
func (x *ImageExecutor) cacheKey(buildCtx string) (string, error) {
	h := sha256.New()
	h.Write([]byte("dockerfile:" + x.df.String()))

	dirHash, err := CalculateDirHash(buildCtx)
	if err != nil {
		return "", err
	}
	h.Write([]byte("context:" + dirHash))

	for _, rel := range slices.Sorted(maps.Keys(x.staged)) {
		sum := sha256.Sum256(x.staged[rel])
		h.Write([]byte("staged:" + rel + ":" + hex.EncodeToString(sum[:])))
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// prepareBuildContext lays out a temporary build context: the application
// under app/, staged files under .dashboot/ and the Dockerfile at the root.
func (x *ImageExecutor) prepareBuildContext() (dir string, cleanup func(), err error) {
	tmpDir, err := os.MkdirTemp("", "dashboot-build-*")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	cleanup = func() {
		_ = os.RemoveAll(tmpDir) // Cleanup temp dir; error non-critical
	}

	srcDir := filepath.Join(tmpDir, appContextDir)
	if err := os.MkdirAll(srcDir, 0o755); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to create application directory: %w", err)
	}
	if x.opts.ContextDir != "" {
		if err := CopyDir(x.opts.ContextDir, srcDir); err != nil {
			cleanup()
			return "", nil, fmt.Errorf("failed to copy build context: %w", err)
		}
	}

	for rel, content := range x.staged {
		p := filepath.Join(tmpDir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			cleanup()
			return "", nil, fmt.Errorf("failed to create stage directory: %w", err)
		}
		if err := os.WriteFile(p, content, 0o644); err != nil {
			cleanup()
			return "", nil, fmt.Errorf("failed to stage %s: %w", rel, err)
		}
	}

	if err := os.WriteFile(filepath.Join(tmpDir, "Dockerfile"), []byte(x.df.String()), 0o644); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to write Dockerfile: %w", err)
	}

	return tmpDir, cleanup, nil
}
