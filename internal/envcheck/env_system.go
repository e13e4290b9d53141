package envcheck

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/mitchellh/go-homedir"

	"ocrd/internal/common/fsutil"
)

// SystemEnv returns an Env backed by the running host.
func SystemEnv() Env {
	home, _ := homedir.Dir()
	return Env{
		GOOS:        runtime.GOOS,
		Getenv:      os.Getenv,
		ReadFile:    os.ReadFile,
		Glob:        filepath.Glob,
		LookPath:    exec.LookPath,
		WritableDir: fsutil.EnsureWritableDir,
		HomeDir:     home,
		Runner:      ExecRunner{},
	}
}
