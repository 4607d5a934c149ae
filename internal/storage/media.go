package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"reelplan/internal/media"
)

var _ media.Store = (*Store)(nil)

// GetAsset returns the asset or a wrapped media.ErrNotFound.
func (s *Store) GetAsset(ctx context.Context, id string) (media.Asset, error) {
	var (
		asset = media.Asset{}
		meta  sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, source_uri, meta_json FROM assets WHERE id = ?`, id).
		Scan(&asset.ID, &asset.SourceURI, &meta)
	if errors.Is(err, sql.ErrNoRows) {
		return media.Asset{}, fmt.Errorf("asset %s: %w", id, media.ErrNotFound)
	}
	if err != nil {
		return media.Asset{}, fmt.Errorf("get asset: %w", err)
	}
	if asset.Meta, err = decodeMeta(meta); err != nil {
		return media.Asset{}, fmt.Errorf("decode asset %s meta: %w", id, err)
	}
	return asset, nil
}

// GetArtifact returns the artifact or a wrapped media.ErrNotFound.
func (s *Store) GetArtifact(ctx context.Context, id string) (media.Artifact, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, kind, parent_asset_id, uri, meta_json FROM artifacts WHERE id = ?`, id)
	artifact, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return media.Artifact{}, fmt.Errorf("artifact %s: %w", id, media.ErrNotFound)
	}
	if err != nil {
		return media.Artifact{}, fmt.Errorf("get artifact: %w", err)
	}
	return artifact, nil
}

// ListArtifacts returns an asset's derived artifacts ordered by kind then id.
func (s *Store) ListArtifacts(ctx context.Context, assetID string) ([]media.Artifact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, parent_asset_id, uri, meta_json FROM artifacts WHERE parent_asset_id = ? ORDER BY kind, id`, assetID)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()
	var out []media.Artifact
	for rows.Next() {
		artifact, err := scanArtifact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		out = append(out, artifact)
	}
	return out, rows.Err()
}

func scanArtifact(scanner interface{ Scan(dest ...any) error }) (media.Artifact, error) {
	var (
		artifact media.Artifact
		meta     sql.NullString
	)
	if err := scanner.Scan(&artifact.ID, &artifact.Kind, &artifact.ParentAssetID, &artifact.URI, &meta); err != nil {
		return media.Artifact{}, err
	}
	decoded, err := decodeMeta(meta)
	if err != nil {
		return media.Artifact{}, err
	}
	artifact.Meta = decoded
	return artifact, nil
}

// PutAsset inserts or replaces an asset.
func (s *Store) PutAsset(ctx context.Context, asset media.Asset) error {
	meta, err := encodeJSON(asset.Meta)
	if err != nil {
		return fmt.Errorf("encode asset %s meta: %w", asset.ID, err)
	}
	if err := s.exec(ctx, `INSERT OR REPLACE INTO assets (id, source_uri, meta_json) VALUES (?, ?, ?)`,
		asset.ID, asset.SourceURI, meta); err != nil {
		return fmt.Errorf("put asset %s: %w", asset.ID, err)
	}
	return nil
}

// PutArtifact inserts or replaces a derived artifact.
func (s *Store) PutArtifact(ctx context.Context, artifact media.Artifact) error {
	meta, err := encodeJSON(artifact.Meta)
	if err != nil {
		return fmt.Errorf("encode artifact %s meta: %w", artifact.ID, err)
	}
	if err := s.exec(ctx,
		`INSERT OR REPLACE INTO artifacts (id, kind, parent_asset_id, uri, meta_json) VALUES (?, ?, ?, ?, ?)`,
		artifact.ID, artifact.Kind, artifact.ParentAssetID, artifact.URI, meta); err != nil {
		return fmt.Errorf("put artifact %s: %w", artifact.ID, err)
	}
	return nil
}
