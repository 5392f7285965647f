package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"sentinel/internal/logger"
)

// ConceptSink stores ingested knowledge documents.
type ConceptSink interface {
	UpsertConcept(ctx context.Context, c Concept) error
}

// Ingester loads .md and .txt documents from a knowledge directory.
// Documents are keyed by content hash, so re-ingesting is a no-op.
type Ingester struct {
	sink ConceptSink
}

func NewIngester(sink ConceptSink) *Ingester {
	return &Ingester{sink: sink}
}

func supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".txt":
		return true
	}
	return false
}

// ParseConcept builds a concept from a document. The first non-empty line,
// without markdown heading marks, is the title.
func ParseConcept(source string, raw []byte) (Concept, bool) {
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return Concept{}, false
	}
	title := filepath.Base(source)
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(strings.TrimLeft(line, "# ")); line != "" {
			title = line
			break
		}
	}
	sum := sha256.Sum256([]byte(text))
	return Concept{
		ID:     hex.EncodeToString(sum[:8]),
		Source: source,
		Title:  title,
		Text:   text,
	}, true
}

func (in *Ingester) IngestFile(ctx context.Context, path string) (bool, error) {
	if !supported(path) {
		return false, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	c, ok := ParseConcept(path, raw)
	if !ok {
		return false, nil
	}
	if err := in.sink.UpsertConcept(ctx, c); err != nil {
		return false, fmt.Errorf("store concept %s: %w", path, err)
	}
	return true, nil
}

// IngestDir walks dir and returns the number of documents stored.
func (in *Ingester) IngestDir(ctx context.Context, dir string) (int, error) {
	count := 0
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ok, err := in.IngestFile(ctx, path)
		if err != nil {
			logger.Warnf("knowledge ingest skipped %s: %v", path, err)
			return nil
		}
		if ok {
			count++
		}
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("walk %s: %w", dir, err)
	}
	return count, nil
}

// Watch re-ingests documents created or written under dir until ctx ends.
func (in *Ingester) Watch(ctx context.Context, dir string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("knowledge watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	logger.Infof("watching knowledge directory %s", dir)
	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !evt.Has(fsnotify.Create) && !evt.Has(fsnotify.Write) {
				continue
			}
			if stored, err := in.IngestFile(ctx, evt.Name); err != nil {
				logger.Warnf("knowledge reload %s failed: %v", evt.Name, err)
			} else if stored {
				logger.Infof("knowledge document ingested: %s", evt.Name)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warnf("knowledge watcher error: %v", err)
		}
	}
}
