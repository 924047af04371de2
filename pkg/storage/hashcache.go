// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"fmt"
	"time"
)

// GetCachedFileHash returns the cached content hash for a file, or nil when
// the file has never been indexed.
func (c *Client) GetCachedFileHash(ctx context.Context, filePath string) (*string, error) {
	script := "?[content_hash] := *FileHashCache{file_path, content_hash}, file_path == $path"
	result, err := c.query(ctx, script, map[string]any{"path": filePath})
	if err != nil {
		return nil, fmt.Errorf("get cached hash for %s: %w", filePath, err)
	}
	if len(result.Rows) == 0 || len(result.Rows[0]) == 0 {
		return nil, nil
	}
	hash := rowString(result.Rows[0][0])
	return &hash, nil
}

// SetCachedFileHash upserts the cached hash for a file. Rows are updated on
// every observed change and never deleted.
func (c *Client) SetCachedFileHash(ctx context.Context, filePath, hash string) error {
	script := `
	?[file_path, content_hash, last_updated] <- [[$path, $hash, $updated]]

	:put FileHashCache { file_path => content_hash, last_updated }
	`
	params := map[string]any{
		"path":    filePath,
		"hash":    hash,
		"updated": time.Now().UTC().Format(time.RFC3339),
	}
	if _, err := c.run(ctx, script, params); err != nil {
		return fmt.Errorf("set cached hash for %s: %w", filePath, err)
	}
	return nil
}
