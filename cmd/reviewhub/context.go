package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"reviewhub/internal/config"
	"reviewhub/internal/installer"
	"reviewhub/internal/logging"
	"reviewhub/internal/manifest"
	"reviewhub/internal/services/bark"
	"reviewhub/internal/services/dia"
	"reviewhub/internal/tts"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// ensureLogger builds the shared CLI logger lazily. Commands that skip
// config loading never reach it.
func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	c.loggerOnce.Do(func() {
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// buildEngines constructs the synthesis engines behind a shared installer
// manager. The caller owns the manager and must Close it.
func (c *commandContext) buildEngines() ([]tts.Engine, *installer.Manager, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, nil, err
	}
	manager, err := installer.NewManager(cfg.Audio.PythonBinary, cfg.EnvsDir(), cfg.LedgerPath(), cfg.Audio.DiskFloorGiB, logger)
	if err != nil {
		return nil, nil, err
	}
	engines := []tts.Engine{
		dia.New(manager, logger),
		bark.New(manager, logger),
	}
	return engines, manager, nil
}

var reviewIDPattern = regexp.MustCompile(`^review-\d{3,}$`)

func (c *commandContext) manifestPath(id string) (string, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	if !reviewIDPattern.MatchString(id) {
		return "", fmt.Errorf("invalid review id %q (expected review-NNN)", id)
	}
	return filepath.Join(cfg.Paths.ReviewsDir, id+".json"), nil
}

// resolveReview loads the named review, or the most recent one when id is
// empty.
func (c *commandContext) resolveReview(id string) (*manifest.Manifest, string, error) {
	if strings.TrimSpace(id) == "" {
		ids, err := c.listReviewIDs()
		if err != nil {
			return nil, "", err
		}
		if len(ids) == 0 {
			return nil, "", fmt.Errorf("no reviews found; run `reviewhub create` first")
		}
		id = ids[len(ids)-1]
	}
	path, err := c.manifestPath(id)
	if err != nil {
		return nil, "", err
	}
	m, err := manifest.Load(path)
	if err != nil {
		return nil, "", err
	}
	return m, path, nil
}

func (c *commandContext) listReviewIDs() ([]string, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	matches, err := filepath.Glob(filepath.Join(cfg.Paths.ReviewsDir, "review-*.json"))
	if err != nil {
		return nil, fmt.Errorf("scan reviews directory: %w", err)
	}
	ids := make([]string, 0, len(matches))
	for _, match := range matches {
		id := strings.TrimSuffix(filepath.Base(match), ".json")
		if reviewIDPattern.MatchString(id) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
