package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"github.com/surokacs/petertrain-bot/core/logger"
)

// FileProvider reads the catalog from a file and reloads it when the file
// changes, so operators can edit prices without restarting the bot.
// Concurrent reloads are collapsed into one.
type FileProvider struct {
	path string

	group singleflight.Group

	mu      sync.RWMutex
	cached  Catalog
	modTime time.Time
	size    int64
	loaded  bool
}

// NewFileProvider returns a provider for the JSON (.json) or YAML (.yaml, .yml) file at path.
func NewFileProvider(path string) *FileProvider {
	return &FileProvider{path: path}
}

// Catalog implements Provider.
func (p *FileProvider) Catalog(ctx context.Context) (Catalog, error) {
	info, err := os.Stat(p.path)
	if err != nil {
		return Catalog{}, fmt.Errorf("catalog: stat %s: %w", p.path, err)
	}

	p.mu.RLock()
	if p.loaded && info.ModTime().Equal(p.modTime) && info.Size() == p.size {
		c := p.cached
		p.mu.RUnlock()
		return c, nil
	}
	p.mu.RUnlock()

	v, err, _ := p.group.Do(p.path, func() (any, error) {
		return p.reload(ctx, info)
	})
	if err != nil {
		return Catalog{}, err
	}
	return v.(Catalog), nil
}

func (p *FileProvider) reload(ctx context.Context, info os.FileInfo) (Catalog, error) {
	start := time.Now()
	data, err := os.ReadFile(p.path)
	if err != nil {
		return Catalog{}, fmt.Errorf("catalog: read %s: %w", p.path, err)
	}
	c, err := Parse(p.path, data)
	if err != nil {
		logger.Error(ctx, "catalog", "catalog.load",
			slog.String("path", p.path),
			slog.String("err", err.Error()),
		)
		return Catalog{}, err
	}

	p.mu.Lock()
	p.cached, p.modTime, p.size, p.loaded = c, info.ModTime(), info.Size(), true
	p.mu.Unlock()

	logger.Info(ctx, "catalog", "catalog.load",
		slog.String("status", "ok"),
		slog.String("path", p.path),
		slog.Int("count", len(c.Categories)),
		slog.Duration("duration", logger.Took(start)),
	)
	return c, nil
}

// Parse decodes and validates catalog data; the format follows the file extension.
func Parse(name string, data []byte) (Catalog, error) {
	var cats []Category
	var err error
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cats)
	case ".json", "":
		err = json.Unmarshal(data, &cats)
	default:
		return Catalog{}, fmt.Errorf("catalog: unsupported file type %q", filepath.Ext(name))
	}
	if err != nil {
		return Catalog{}, fmt.Errorf("%w: decode %s: %w", ErrInvalid, name, err)
	}
	c := Catalog{Categories: cats}
	if err := c.Validate(); err != nil {
		return Catalog{}, err
	}
	return c, nil
}
