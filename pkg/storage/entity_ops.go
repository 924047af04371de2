// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kraklabs/parseltongue/pkg/entities"
)

// codeGraphColumns is the canonical column order used by every CodeGraph
// read and write in this package.
const codeGraphColumns = "ISGL1_key, Current_Code, Future_Code, interface_signature, " +
	"TDD_Classification, lsp_meta_data, current_ind, future_ind, Future_Action, " +
	"file_path, language, last_modified, entity_type, entity_class, " +
	"birth_timestamp, content_hash, semantic_path, root_subfolder_L1, root_subfolder_L2"

// codeGraphPutClause is the :put spec matching codeGraphColumns.
const codeGraphPutClause = `:put CodeGraph {
	ISGL1_key =>
	Current_Code, Future_Code, interface_signature, TDD_Classification,
	lsp_meta_data, current_ind, future_ind, Future_Action, file_path,
	language, last_modified, entity_type, entity_class, birth_timestamp,
	content_hash, semantic_path, root_subfolder_L1, root_subfolder_L2
}`

// InsertEntity upserts a single entity via a parameterized :put.
func (c *Client) InsertEntity(ctx context.Context, e *entities.CodeEntity) error {
	if err := e.Validate(); err != nil {
		return err
	}
	sigJSON, err := json.Marshal(e.Signature)
	if err != nil {
		return fmt.Errorf("marshal interface signature: %w", err)
	}

	script := fmt.Sprintf(`
	?[%s] <- [[
		$key, $current_code, $future_code, $interface_signature,
		$tdd_classification, $lsp_meta_data, $current_ind, $future_ind,
		$future_action, $file_path, $language, $last_modified,
		$entity_type, $entity_class, $birth_timestamp, $content_hash,
		$semantic_path, $l1, $l2
	]]

	%s
	`, codeGraphColumns, codeGraphPutClause)

	params := map[string]any{
		"key":                 e.Key,
		"current_code":        optStringParam(e.CurrentCode),
		"future_code":         optStringParam(e.FutureCode),
		"interface_signature": string(sigJSON),
		"tdd_classification":  string(e.Tdd),
		"lsp_meta_data":       optStringParam(e.LspMetadata),
		"current_ind":         e.CurrentInd,
		"future_ind":          e.FutureInd,
		"future_action":       optStringParam(e.FutureAction),
		"file_path":           e.FilePath,
		"language":            e.Language,
		"last_modified":       e.LastModified,
		"entity_type":         string(e.Kind),
		"entity_class":        string(e.Class),
		"birth_timestamp":     optIntParam(e.BirthTimestamp),
		"content_hash":        optStringParam(e.ContentHash),
		"semantic_path":       optStringParam(e.SemanticPath),
		"l1":                  e.L1,
		"l2":                  e.L2,
	}

	if _, err := c.run(ctx, script, params); err != nil {
		return fmt.Errorf("insert entity %s: %w", e.Key, err)
	}
	return nil
}

// InsertEntitiesBatch upserts entities in a single script with inline data.
// An empty batch is a no-op.
func (c *Client) InsertEntitiesBatch(ctx context.Context, batch []*entities.CodeEntity) error {
	if len(batch) == 0 {
		return nil
	}

	tuples := make([]string, 0, len(batch))
	for _, e := range batch {
		tuple, err := entityTuple(e)
		if err != nil {
			return err
		}
		tuples = append(tuples, tuple)
	}

	script := fmt.Sprintf("?[%s] <- [%s]\n\n%s\n",
		codeGraphColumns, strings.Join(tuples, ", "), codeGraphPutClause)

	if _, err := c.run(ctx, script, nil); err != nil {
		return fmt.Errorf("batch insert %d entities: %w", len(batch), err)
	}
	return nil
}

// entityTuple renders one inline data tuple for a batched entity upsert.
func entityTuple(e *entities.CodeEntity) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	sigJSON, err := json.Marshal(e.Signature)
	if err != nil {
		return "", fmt.Errorf("marshal interface signature for %s: %w", e.Key, err)
	}

	fields := []string{
		quoteString(e.Key),
		quoteOptString(e.CurrentCode),
		quoteOptString(e.FutureCode),
		quoteString(string(sigJSON)),
		quoteString(string(e.Tdd)),
		quoteOptString(e.LspMetadata),
		quoteBool(e.CurrentInd),
		quoteBool(e.FutureInd),
		quoteOptString(e.FutureAction),
		quoteString(e.FilePath),
		quoteString(e.Language),
		quoteString(e.LastModified),
		quoteString(string(e.Kind)),
		quoteString(string(e.Class)),
		quoteOptInt(e.BirthTimestamp),
		quoteOptString(e.ContentHash),
		quoteOptString(e.SemanticPath),
		quoteString(e.L1),
		quoteString(e.L2),
	}
	return "[" + strings.Join(fields, ", ") + "]", nil
}

// GetEntity fetches one entity by key.
func (c *Client) GetEntity(ctx context.Context, key string) (*entities.CodeEntity, error) {
	script := fmt.Sprintf(
		"?[%s] := *CodeGraph{%s}, ISGL1_key == $key", codeGraphColumns, codeGraphColumns)
	result, err := c.query(ctx, script, map[string]any{"key": key})
	if err != nil {
		return nil, fmt.Errorf("get entity %s: %w", key, err)
	}
	if len(result.Rows) == 0 {
		return nil, fmt.Errorf("entity not found: %s", key)
	}
	return decodeEntityRow(result.Rows[0])
}

// GetEntitiesByFilePath returns every entity indexed for the given file.
func (c *Client) GetEntitiesByFilePath(ctx context.Context, filePath string) ([]*entities.CodeEntity, error) {
	script := fmt.Sprintf(
		"?[%s] := *CodeGraph{%s}, file_path == $path", codeGraphColumns, codeGraphColumns)
	result, err := c.query(ctx, script, map[string]any{"path": filePath})
	if err != nil {
		return nil, fmt.Errorf("get entities for %s: %w", filePath, err)
	}
	return decodeEntityRows(result.Rows)
}

// GetAllEntities returns the full entity relation.
func (c *Client) GetAllEntities(ctx context.Context) ([]*entities.CodeEntity, error) {
	script := fmt.Sprintf("?[%s] := *CodeGraph{%s}", codeGraphColumns, codeGraphColumns)
	result, err := c.query(ctx, script, nil)
	if err != nil {
		return nil, fmt.Errorf("get all entities: %w", err)
	}
	return decodeEntityRows(result.Rows)
}

// DeleteEntitiesByKeys removes entities in one :rm script and returns the
// number of keys submitted. Empty input is a no-op.
func (c *Client) DeleteEntitiesByKeys(ctx context.Context, keys []string) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	tuples := make([]string, len(keys))
	for i, k := range keys {
		tuples[i] = "[" + quoteString(k) + "]"
	}
	script := fmt.Sprintf("?[ISGL1_key] <- [%s]\n\n:rm CodeGraph { ISGL1_key }\n",
		strings.Join(tuples, ", "))
	if _, err := c.run(ctx, script, nil); err != nil {
		return 0, fmt.Errorf("delete %d entities: %w", len(keys), err)
	}
	return len(keys), nil
}

// CountEntities returns the CodeGraph row count.
func (c *Client) CountEntities(ctx context.Context) (int, error) {
	result, err := c.query(ctx, "?[count(ISGL1_key)] := *CodeGraph{ISGL1_key}", nil)
	if err != nil {
		return 0, fmt.Errorf("count entities: %w", err)
	}
	if len(result.Rows) == 0 || len(result.Rows[0]) == 0 {
		return 0, nil
	}
	return int(rowInt(result.Rows[0][0])), nil
}

func decodeEntityRows(rows [][]any) ([]*entities.CodeEntity, error) {
	out := make([]*entities.CodeEntity, 0, len(rows))
	for _, row := range rows {
		e, err := decodeEntityRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// decodeEntityRow maps a CodeGraph row (in codeGraphColumns order) back to a
// CodeEntity.
func decodeEntityRow(row []any) (*entities.CodeEntity, error) {
	if len(row) < 19 {
		return nil, fmt.Errorf("CodeGraph row has %d columns, want 19", len(row))
	}

	var sig entities.InterfaceSignature
	if sigJSON := rowString(row[3]); sigJSON != "" {
		if err := json.Unmarshal([]byte(sigJSON), &sig); err != nil {
			return nil, fmt.Errorf("decode interface signature for %s: %w", rowString(row[0]), err)
		}
	}

	e := &entities.CodeEntity{
		Key:          rowString(row[0]),
		CurrentCode:  rowOptString(row[1]),
		FutureCode:   rowOptString(row[2]),
		Signature:    sig,
		Tdd:          entities.TddClassification(rowString(row[4])),
		LspMetadata:  rowOptString(row[5]),
		CurrentInd:   rowBool(row[6]),
		FutureInd:    rowBool(row[7]),
		FutureAction: rowOptString(row[8]),
		FilePath:     rowString(row[9]),
		Language:     rowString(row[10]),
		LastModified: rowString(row[11]),
		Kind:         entities.EntityKind(rowString(row[12])),
		Class:        entities.EntityClass(rowString(row[13])),
		ContentHash:  rowOptString(row[15]),
		SemanticPath: rowOptString(row[16]),
		L1:           rowString(row[17]),
		L2:           rowString(row[18]),
	}
	if row[14] != nil {
		ts := rowInt(row[14])
		e.BirthTimestamp = &ts
	}
	return e, nil
}

func optStringParam(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func optIntParam(n *int64) any {
	if n == nil {
		return nil
	}
	return *n
}
