// Package launcher starts external editor applications for registered
// repository paths. Launches are fire-and-forget: candidates are tried in
// order until one spawns, the child is detached with suppressed standard
// streams, and its outcome is never observed.
package launcher

import (
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
)

// Editor identifies one of the supported editor applications.
type Editor string

const (
	EditorVSCode   Editor = "vs"
	EditorWebStorm Editor = "ws"
	EditorCursor   Editor = "cs"
	EditorIntelliJ Editor = "ij"
	EditorPyCharm  Editor = "pc"
)

// Editors lists all supported editor identifiers.
var Editors = []Editor{EditorVSCode, EditorWebStorm, EditorCursor, EditorIntelliJ, EditorPyCharm}

// ParseEditor validates a raw editor identifier.
func ParseEditor(raw string) (Editor, error) {
	for _, e := range Editors {
		if raw == string(e) {
			return e, nil
		}
	}
	return "", fmt.Errorf("unknown editor %q (expected one of vs, ws, cs, ij, pc)", raw)
}

// DisplayName returns the editor's application name.
func (e Editor) DisplayName() string {
	switch e {
	case EditorVSCode:
		return "Visual Studio Code"
	case EditorWebStorm:
		return "WebStorm"
	case EditorCursor:
		return "Cursor"
	case EditorIntelliJ:
		return "IntelliJ IDEA"
	case EditorPyCharm:
		return "PyCharm"
	default:
		return string(e)
	}
}

// Candidate is one launch invocation to attempt.
type Candidate struct {
	Name string
	Args []string
}

// EditorNotFoundError reports that every launch candidate for an editor
// failed to spawn.
type EditorNotFoundError struct {
	Editor Editor
}

func (e *EditorNotFoundError) Error() string {
	return fmt.Sprintf("%s not found: no launch command could be started", e.Editor.DisplayName())
}

func (e *EditorNotFoundError) ErrorCode() string { return "editor_not_found" }

// Spawner starts a detached process. A spawn error means the process could
// not be started at all; the child's exit status is never reported.
type Spawner interface {
	Start(name string, args ...string) error
}

type execSpawner struct{}

// Start launches the command detached with all standard streams suppressed.
func (execSpawner) Start(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	// Stdin/Stdout/Stderr stay nil: the child gets the null device.
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}

// Launcher resolves launch candidates per editor and platform and attempts
// them strictly in order.
type Launcher struct {
	spawner   Spawner
	goos      string
	overrides map[Editor][]Candidate
	logger    *slog.Logger
}

// Option configures a Launcher.
type Option func(*Launcher)

// WithSpawner replaces the process-spawn facility (used by tests).
func WithSpawner(sp Spawner) Option {
	return func(l *Launcher) { l.spawner = sp }
}

// WithGOOS overrides the platform used for candidate resolution.
func WithGOOS(goos string) Option {
	return func(l *Launcher) { l.goos = goos }
}

// WithOverrides prepends user-configured candidates per editor.
func WithOverrides(overrides map[Editor][]Candidate) Option {
	return func(l *Launcher) { l.overrides = overrides }
}

// New creates a Launcher for the current platform.
func New(logger *slog.Logger, opts ...Option) *Launcher {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Launcher{
		spawner: execSpawner{},
		goos:    runtime.GOOS,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Open attempts to start the given editor on path. Candidates are tried
// sequentially; the first successful spawn wins and no further candidates
// are attempted. When every candidate fails to spawn, an
// EditorNotFoundError is returned. The launched process is never awaited.
func (l *Launcher) Open(path string, editor Editor) error {
	var candidates []Candidate
	candidates = append(candidates, l.overrides[editor]...)
	candidates = append(candidates, l.candidates(editor)...)

	for _, c := range candidates {
		err := l.spawner.Start(c.Name, append(c.Args, path)...)
		if err == nil {
			l.logger.Info("editor launched", "editor", string(editor), "command", c.Name, "path", path)
			return nil
		}
		l.logger.Debug("launch candidate failed", "editor", string(editor), "command", c.Name, "err", err)
	}
	return &EditorNotFoundError{Editor: editor}
}
