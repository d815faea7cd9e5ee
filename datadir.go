package stash

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"
)

// DirEnv is the environment variable that overrides DataDir.
const DirEnv = "STASH_DIR"

// DataDir tells where the default file-based stash lives.
// It is the value of $STASH_DIR if set,
// otherwise a "stash" directory inside the per-user data directory:
// $XDG_DATA_HOME or ~/.local/share on Unix,
// ~/Library/Application Support on macOS,
// and %LocalAppData% on Windows.
func DataDir() (string, error) {
	if dir := os.Getenv(DirEnv); dir != "" {
		return dir, nil
	}
	base, err := userDataDir()
	if err != nil {
		return "", errors.Wrap(err, "finding user data dir")
	}
	return filepath.Join(base, "stash"), nil
}

func userDataDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		if dir := os.Getenv("LocalAppData"); dir != "" {
			return dir, nil
		}
		return "", errors.New("%LocalAppData% is not set")

	case "darwin", "ios":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support"), nil
	}

	if dir := os.Getenv("XDG_DATA_HOME"); filepath.IsAbs(dir) {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share"), nil
}
