package launcher

import (
	"os"
	"path/filepath"
)

// candidates returns the ordered launch invocations for an editor on the
// configured platform. The target path is appended by Open.
func (l *Launcher) candidates(editor Editor) []Candidate {
	if l.goos == "darwin" {
		return []Candidate{{Name: "open", Args: []string{"-a", editor.DisplayName()}}}
	}

	var out []Candidate
	for _, name := range cliNames[editor] {
		out = append(out, Candidate{Name: name})
	}
	for _, pattern := range installGlobs(editor) {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			continue
		}
		for _, m := range matches {
			out = append(out, Candidate{Name: m})
		}
	}
	return out
}

// cliNames lists launcher executables expected on PATH, primary name first.
var cliNames = map[Editor][]string{
	EditorVSCode:   {"code", "code-insiders", "codium"},
	EditorWebStorm: {"webstorm", "wstorm", "webstorm.sh"},
	EditorCursor:   {"cursor"},
	EditorIntelliJ: {"idea", "intellij-idea-ultimate", "idea.sh"},
	EditorPyCharm:  {"pycharm", "charm", "pycharm.sh"},
}

// installGlobs returns known install-location patterns derived from the
// environment. JetBrains installs carry the version in the folder name,
// hence the wildcards.
func installGlobs(editor Editor) []string {
	var patterns []string

	if local := os.Getenv("LOCALAPPDATA"); local != "" {
		switch editor {
		case EditorVSCode:
			patterns = append(patterns, filepath.Join(local, "Programs", "Microsoft VS Code", "bin", "code.cmd"))
		case EditorCursor:
			patterns = append(patterns, filepath.Join(local, "Programs", "cursor", "Cursor.exe"))
		case EditorWebStorm:
			patterns = append(patterns, filepath.Join(local, "Programs", "WebStorm*", "bin", "webstorm64.exe"))
		case EditorIntelliJ:
			patterns = append(patterns, filepath.Join(local, "Programs", "IntelliJ IDEA*", "bin", "idea64.exe"))
		case EditorPyCharm:
			patterns = append(patterns, filepath.Join(local, "Programs", "PyCharm*", "bin", "pycharm64.exe"))
		}
	}

	if programFiles := os.Getenv("ProgramFiles"); programFiles != "" {
		switch editor {
		case EditorWebStorm:
			patterns = append(patterns, filepath.Join(programFiles, "JetBrains", "WebStorm*", "bin", "webstorm64.exe"))
		case EditorIntelliJ:
			patterns = append(patterns, filepath.Join(programFiles, "JetBrains", "IntelliJ IDEA*", "bin", "idea64.exe"))
		case EditorPyCharm:
			patterns = append(patterns, filepath.Join(programFiles, "JetBrains", "PyCharm*", "bin", "pycharm64.exe"))
		case EditorVSCode:
			patterns = append(patterns, filepath.Join(programFiles, "Microsoft VS Code", "bin", "code.cmd"))
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		switch editor {
		case EditorWebStorm:
			patterns = append(patterns, filepath.Join(home, ".local", "share", "JetBrains", "Toolbox", "scripts", "webstorm"))
		case EditorIntelliJ:
			patterns = append(patterns, filepath.Join(home, ".local", "share", "JetBrains", "Toolbox", "scripts", "idea"))
		case EditorPyCharm:
			patterns = append(patterns, filepath.Join(home, ".local", "share", "JetBrains", "Toolbox", "scripts", "pycharm"))
		}
	}

	return patterns
}
