package sources

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/schemabounce/kolumn/dbwizard/config"
	"github.com/schemabounce/kolumn/dbwizard/helpers/logging"
)

// DefaultConfigFileNames are probed in order when no file name is configured.
var DefaultConfigFileNames = []string{"Web.config", "App.config"}

// LocalSource reads the configuration file of a project directory.
type LocalSource struct {
	config *LocalConfig
}

// LocalConfig contains local filesystem source configuration
type LocalConfig struct {
	ProjectDir string `json:"project_dir"`
	FileName   string `json:"file_name"`
}

// NewLocalSource creates a new local filesystem source
func NewLocalSource() *LocalSource {
	return &LocalSource{}
}

// Configure sets up the local filesystem source
func (s *LocalSource) Configure(_ context.Context, settings map[string]interface{}) error {
	cfg, err := parseLocalConfig(settings)
	if err != nil {
		return fmt.Errorf("invalid local configuration: %w", err)
	}
	s.config = cfg
	return nil
}

// Load implements config.Loader. A connectionStrings section that points
// elsewhere through configSource is read from that file, relative to the
// configuration file.
func (s *LocalSource) Load(ctx context.Context) (*config.Document, error) {
	if s.config == nil {
		return nil, fmt.Errorf("source not configured")
	}

	path, err := s.resolvePath()
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	doc, err := config.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logging.ConfigLogger.DebugWithFields("loaded application configuration", "path", path, "connection_strings", doc.Len())

	if source := doc.ConfigSource(); source != "" {
		return s.loadSection(filepath.Join(filepath.Dir(path), filepath.FromSlash(source)))
	}
	return doc, nil
}

func (s *LocalSource) loadSection(path string) (*config.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open configSource %s: %w", path, err)
	}
	defer f.Close()

	doc, err := config.ParseSection(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

func (s *LocalSource) resolvePath() (string, error) {
	candidates := DefaultConfigFileNames
	if s.config.FileName != "" {
		candidates = []string{s.config.FileName}
	}

	for _, name := range candidates {
		path := filepath.Join(s.config.ProjectDir, name)
		info, err := os.Stat(path)
		switch {
		case err == nil && !info.IsDir():
			return path, nil
		case err != nil && !errors.Is(err, fs.ErrNotExist):
			return "", fmt.Errorf("failed to stat %s: %w", path, err)
		}
	}
	return "", fmt.Errorf("%w in %s", config.ErrNotFound, s.config.ProjectDir)
}

func parseLocalConfig(settings map[string]interface{}) (*LocalConfig, error) {
	cfg := &LocalConfig{}
	stringSetting(settings, "project_dir", &cfg.ProjectDir)
	stringSetting(settings, "file_name", &cfg.FileName)

	if cfg.ProjectDir == "" {
		return nil, fmt.Errorf("project_dir is required")
	}
	return cfg, nil
}
