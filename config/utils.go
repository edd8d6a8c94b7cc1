package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

var (
	workspaceDir     string
	workspaceDirOnce sync.Once
)

const (
	configFileName  = "config.yaml"
	workspaceEnvKey = "PRIMON_HOME"
)

// GetWorkspaceDir returns $PRIMON_HOME or ~/.primon.
func GetWorkspaceDir() string {
	workspaceDirOnce.Do(func() {
		if dir := os.Getenv(workspaceEnvKey); dir != "" {
			workspaceDir = dir
			return
		}
		home, err := os.UserHomeDir()
		if err != nil {
			panic(err)
		}
		workspaceDir = filepath.Join(home, ".primon")
	})

	return workspaceDir
}

func GetWorkspaceConfigPath() (string, error) {
	dir := GetWorkspaceDir()
	if dir == "" {
		return "", fmt.Errorf("failed to resolve workspace directory")
	}

	return filepath.Join(dir, configFileName), nil
}
