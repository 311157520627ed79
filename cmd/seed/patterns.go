package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/config"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/pattern"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/storage"
)

func uploadPatterns(c *cli.Context) error {
	cfg := config.Load()
	client, err := storage.NewS3Client(storage.S3Config{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		UseSSL:    cfg.Storage.UseSSL,
	})
	if err != nil {
		return err
	}

	docs, err := readPatternDir(c.String("dir"))
	if err != nil {
		return err
	}

	for name, raw := range docs {
		key := path.Join(cfg.Storage.PatternPrefix, name)
		if err := client.UploadObject(c.Context, key, raw, "application/json"); err != nil {
			return fmt.Errorf("failed to upload %s: %w", key, err)
		}
		log.Printf("Uploaded %s\n", key)
	}
	log.Printf("Uploaded %d pattern documents\n", len(docs))
	return nil
}

// readPatternDir returns the valid *.json pattern documents in dir keyed by file name.
func readPatternDir(dir string) (map[string][]byte, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	docs := make(map[string][]byte)
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", e.Name(), err)
		}
		var p pattern.Pattern
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", e.Name(), err)
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", e.Name(), err)
		}
		docs[e.Name()] = raw
	}
	return docs, nil
}
