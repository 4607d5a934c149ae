package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"reelplan/internal/timeline"
)

var _ timeline.Store = (*Store)(nil)

type filterRecord struct {
	Type           string         `json:"type"`
	Params         map[string]any `json:"params,omitempty"`
	Enabled        bool           `json:"enabled"`
	MaskArtifactID string         `json:"mask_artifact_id,omitempty"`
}

type keyframeRecord struct {
	TimeMS int64   `json:"time_ms"`
	Value  float64 `json:"value"`
}

// GetProject returns the project or a wrapped timeline.ErrNotFound.
func (s *Store) GetProject(ctx context.Context, id string) (timeline.Project, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, created_at, updated_at FROM projects WHERE id = ?`, id)
	var (
		p                timeline.Project
		created, updated string
	)
	if err := row.Scan(&p.ID, &p.Name, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return timeline.Project{}, fmt.Errorf("project %s: %w", id, timeline.ErrNotFound)
		}
		return timeline.Project{}, fmt.Errorf("get project: %w", err)
	}
	p.CreatedAt = parseTime(created)
	p.UpdatedAt = parseTime(updated)
	return p, nil
}

// ListProjects returns all projects ordered by name.
func (s *Store) ListProjects(ctx context.Context) ([]timeline.Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, created_at, updated_at FROM projects ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()
	var out []timeline.Project
	for rows.Next() {
		var (
			p                timeline.Project
			created, updated string
		)
		if err := rows.Scan(&p.ID, &p.Name, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		p.CreatedAt = parseTime(created)
		p.UpdatedAt = parseTime(updated)
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListSequences returns a project's sequences in timeline order.
func (s *Store) ListSequences(ctx context.Context, projectID string) ([]timeline.Sequence, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, name, sort_order, duration_ms FROM sequences WHERE project_id = ? ORDER BY sort_order, id`,
		projectID)
	if err != nil {
		return nil, fmt.Errorf("list sequences: %w", err)
	}
	defer rows.Close()
	var out []timeline.Sequence
	for rows.Next() {
		var seq timeline.Sequence
		if err := rows.Scan(&seq.ID, &seq.ProjectID, &seq.Name, &seq.Order, &seq.DurationMS); err != nil {
			return nil, fmt.Errorf("scan sequence: %w", err)
		}
		out = append(out, seq)
	}
	return out, rows.Err()
}

// ListTracks returns a sequence's tracks in stacking order.
func (s *Store) ListTracks(ctx context.Context, sequenceID string) ([]timeline.Track, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, sequence_id, name, sort_order, kind, audio_role FROM tracks WHERE sequence_id = ? ORDER BY sort_order, id`,
		sequenceID)
	if err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	defer rows.Close()
	var out []timeline.Track
	for rows.Next() {
		var (
			track      timeline.Track
			kind, role string
		)
		if err := rows.Scan(&track.ID, &track.SequenceID, &track.Name, &track.Order, &kind, &role); err != nil {
			return nil, fmt.Errorf("scan track: %w", err)
		}
		track.Kind = timeline.TrackKind(kind)
		track.AudioRole = timeline.AudioRole(role)
		out = append(out, track)
	}
	return out, rows.Err()
}

const clipColumns = "id, track_id, asset_id, in_ms, out_ms, start_ms, speed, volume_db, blend_mode, stabilise, mask_artifact_id, meta_json"

// ListClips returns a track's clips ordered by timeline position.
func (s *Store) ListClips(ctx context.Context, trackID string) ([]timeline.Clip, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+clipColumns+` FROM clips WHERE track_id = ? ORDER BY start_ms, id`, trackID)
	if err != nil {
		return nil, fmt.Errorf("list clips: %w", err)
	}
	defer rows.Close()
	var out []timeline.Clip
	for rows.Next() {
		var (
			clip      timeline.Clip
			blend     string
			stabilise int
			mask      sql.NullString
			meta      sql.NullString
		)
		if err := rows.Scan(&clip.ID, &clip.TrackID, &clip.AssetID, &clip.InMS, &clip.OutMS, &clip.StartMS,
			&clip.Speed, &clip.VolumeDB, &blend, &stabilise, &mask, &meta); err != nil {
			return nil, fmt.Errorf("scan clip: %w", err)
		}
		clip.BlendMode = timeline.BlendMode(blend)
		clip.Stabilise = stabilise != 0
		clip.MaskArtifactID = mask.String
		if clip.Meta, err = decodeMeta(meta); err != nil {
			return nil, fmt.Errorf("decode clip %s meta: %w", clip.ID, err)
		}
		out = append(out, clip)
	}
	return out, rows.Err()
}

// ListAutomation returns every automation attached to a target.
func (s *Store) ListAutomation(ctx context.Context, targetType timeline.TargetType, targetID string) ([]timeline.Automation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, property, keyframes_json FROM automations WHERE target_type = ? AND target_id = ? ORDER BY property, id`,
		string(targetType), targetID)
	if err != nil {
		return nil, fmt.Errorf("list automation: %w", err)
	}
	defer rows.Close()
	var out []timeline.Automation
	for rows.Next() {
		var (
			auto = timeline.Automation{TargetType: targetType, TargetID: targetID}
			raw  string
		)
		if err := rows.Scan(&auto.ID, &auto.Property, &raw); err != nil {
			return nil, fmt.Errorf("scan automation: %w", err)
		}
		var records []keyframeRecord
		if err := json.Unmarshal([]byte(raw), &records); err != nil {
			return nil, fmt.Errorf("decode automation %s keyframes: %w", auto.ID, err)
		}
		auto.Keyframes = make([]timeline.Keyframe, 0, len(records))
		for _, rec := range records {
			auto.Keyframes = append(auto.Keyframes, timeline.Keyframe{TimeMS: rec.TimeMS, Value: rec.Value})
		}
		out = append(out, auto)
	}
	return out, rows.Err()
}

// ListTransitions returns a sequence's transitions.
func (s *Store) ListTransitions(ctx context.Context, sequenceID string) ([]timeline.Transition, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, sequence_id, from_clip_id, to_clip_id, kind, duration_ms, meta_json FROM transitions WHERE sequence_id = ? ORDER BY id`,
		sequenceID)
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	defer rows.Close()
	var out []timeline.Transition
	for rows.Next() {
		var (
			tr   timeline.Transition
			meta sql.NullString
		)
		if err := rows.Scan(&tr.ID, &tr.SequenceID, &tr.FromClipID, &tr.ToClipID, &tr.Kind, &tr.DurationMS, &meta); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		if tr.Meta, err = decodeMeta(meta); err != nil {
			return nil, fmt.Errorf("decode transition %s meta: %w", tr.ID, err)
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}

// GetFilterStack returns the stack attached to a target. A target without a
// stack yields an empty stack and no error.
func (s *Store) GetFilterStack(ctx context.Context, targetType timeline.TargetType, targetID string) (timeline.FilterStack, error) {
	stack := timeline.FilterStack{TargetType: targetType, TargetID: targetID}
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, filters_json FROM filter_stacks WHERE target_type = ? AND target_id = ?`,
		string(targetType), targetID).Scan(&stack.ID, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return stack, nil
	}
	if err != nil {
		return stack, fmt.Errorf("get filter stack: %w", err)
	}
	var records []filterRecord
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return stack, fmt.Errorf("decode filter stack %s: %w", stack.ID, err)
	}
	for _, rec := range records {
		stack.Filters = append(stack.Filters, timeline.Filter(rec))
	}
	return stack, nil
}

// PutProject inserts or replaces a project.
func (s *Store) PutProject(ctx context.Context, p timeline.Project) error {
	created := p.CreatedAt
	if created.IsZero() {
		created = p.UpdatedAt
	}
	if err := s.exec(ctx,
		`INSERT INTO projects (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET name = excluded.name, updated_at = excluded.updated_at`,
		p.ID, p.Name, formatTime(created), formatTime(p.UpdatedAt)); err != nil {
		return fmt.Errorf("put project %s: %w", p.ID, err)
	}
	return nil
}

// PutSequence inserts or updates a sequence. Upserts keep child tracks intact.
func (s *Store) PutSequence(ctx context.Context, seq timeline.Sequence) error {
	if err := s.exec(ctx,
		`INSERT INTO sequences (id, project_id, name, sort_order, duration_ms) VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET project_id = excluded.project_id, name = excluded.name,
             sort_order = excluded.sort_order, duration_ms = excluded.duration_ms`,
		seq.ID, seq.ProjectID, seq.Name, seq.Order, seq.DurationMS); err != nil {
		return fmt.Errorf("put sequence %s: %w", seq.ID, err)
	}
	return nil
}

// PutTrack inserts or updates a track.
func (s *Store) PutTrack(ctx context.Context, track timeline.Track) error {
	kind := track.Kind
	if kind == "" {
		kind = timeline.TrackVideo
	}
	role := track.AudioRole
	if role == "" {
		role = timeline.RoleGeneric
	}
	if err := s.exec(ctx,
		`INSERT INTO tracks (id, sequence_id, name, sort_order, kind, audio_role) VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET sequence_id = excluded.sequence_id, name = excluded.name,
             sort_order = excluded.sort_order, kind = excluded.kind, audio_role = excluded.audio_role`,
		track.ID, track.SequenceID, track.Name, track.Order, string(kind), string(role)); err != nil {
		return fmt.Errorf("put track %s: %w", track.ID, err)
	}
	return nil
}

// PutClip validates and inserts or replaces a clip.
func (s *Store) PutClip(ctx context.Context, clip timeline.Clip) error {
	if err := clip.Validate(); err != nil {
		return err
	}
	meta, err := encodeJSON(clip.Meta)
	if err != nil {
		return fmt.Errorf("encode clip %s meta: %w", clip.ID, err)
	}
	stabilise := 0
	if clip.Stabilise {
		stabilise = 1
	}
	if err := s.exec(ctx,
		`INSERT OR REPLACE INTO clips (`+clipColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		clip.ID, clip.TrackID, clip.AssetID, clip.InMS, clip.OutMS, clip.StartMS, clip.Speed, clip.VolumeDB,
		string(clip.Blend()), stabilise, nullableString(clip.MaskArtifactID), meta); err != nil {
		return fmt.Errorf("put clip %s: %w", clip.ID, err)
	}
	return nil
}

// PutFilterStack inserts or replaces the stack for its target.
func (s *Store) PutFilterStack(ctx context.Context, stack timeline.FilterStack) error {
	records := make([]filterRecord, 0, len(stack.Filters))
	for _, f := range stack.Filters {
		records = append(records, filterRecord(f))
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode filter stack %s: %w", stack.ID, err)
	}
	if err := s.exec(ctx,
		`INSERT INTO filter_stacks (id, target_type, target_id, filters_json) VALUES (?, ?, ?, ?)
         ON CONFLICT(target_type, target_id) DO UPDATE SET id = excluded.id, filters_json = excluded.filters_json`,
		stack.ID, string(stack.TargetType), stack.TargetID, string(data)); err != nil {
		return fmt.Errorf("put filter stack %s: %w", stack.ID, err)
	}
	return nil
}

// PutAutomation validates and inserts or replaces an automation lane.
func (s *Store) PutAutomation(ctx context.Context, auto timeline.Automation) error {
	if err := auto.Validate(); err != nil {
		return err
	}
	records := make([]keyframeRecord, 0, len(auto.Keyframes))
	for _, kf := range auto.Keyframes {
		records = append(records, keyframeRecord{TimeMS: kf.TimeMS, Value: kf.Value})
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode automation %s: %w", auto.ID, err)
	}
	if err := s.exec(ctx,
		`INSERT OR REPLACE INTO automations (id, target_type, target_id, property, keyframes_json) VALUES (?, ?, ?, ?, ?)`,
		auto.ID, string(auto.TargetType), auto.TargetID, auto.Property, string(data)); err != nil {
		return fmt.Errorf("put automation %s: %w", auto.ID, err)
	}
	return nil
}

// PutTransition inserts or replaces a transition.
func (s *Store) PutTransition(ctx context.Context, tr timeline.Transition) error {
	meta, err := encodeJSON(tr.Meta)
	if err != nil {
		return fmt.Errorf("encode transition %s meta: %w", tr.ID, err)
	}
	if err := s.exec(ctx,
		`INSERT OR REPLACE INTO transitions (id, sequence_id, from_clip_id, to_clip_id, kind, duration_ms, meta_json) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tr.ID, tr.SequenceID, tr.FromClipID, tr.ToClipID, tr.Kind, tr.DurationMS, meta); err != nil {
		return fmt.Errorf("put transition %s: %w", tr.ID, err)
	}
	return nil
}
