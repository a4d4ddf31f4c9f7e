package schema

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/examlens/examlens/internal/config"
	"github.com/examlens/examlens/internal/storage"
)

const maxDocumentBytes = 1 << 20

// Origin says where a loaded description came from, for logs.
type Origin string

const (
	OriginFile     Origin = "file"
	OriginObject   Origin = "object"
	OriginEmbedded Origin = "embedded"
)

// Load resolves the description from a local file, then an object store key,
// then the embedded default. source may be nil when no object key is set.
func Load(ctx context.Context, cfg config.SchemaConfig, source storage.ObjectSource) (*Description, Origin, error) {
	if path := strings.TrimSpace(cfg.File); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, "", fmt.Errorf("read schema file: %w", err)
		}
		description, err := Parse(data)
		if err != nil {
			return nil, "", fmt.Errorf("schema file %s: %w", path, err)
		}
		return description, OriginFile, nil
	}

	if key := strings.TrimSpace(cfg.ObjectKey); key != "" {
		if source == nil {
			return nil, "", fmt.Errorf("schema object %q configured without an object store", key)
		}
		data, _, err := storage.ReadAll(ctx, source, key, maxDocumentBytes)
		if err != nil {
			return nil, "", fmt.Errorf("fetch schema object: %w", err)
		}
		description, err := Parse(data)
		if err != nil {
			return nil, "", fmt.Errorf("schema object %s: %w", key, err)
		}
		return description, OriginObject, nil
	}

	return Default(), OriginEmbedded, nil
}
