package captions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"reelplan/internal/logging"
	"reelplan/internal/media"
	"reelplan/internal/services"
)

// Format names accepted in a caption artifact's meta "format".
const (
	FormatJSON   = "json"
	FormatVTT    = "vtt"
	FormatSubRip = "srt"
)

// Service converts caption artifacts to SRT files under a cache directory.
type Service struct {
	media  media.Store
	dir    string
	logger *slog.Logger
}

// NewService constructs a caption converter writing into dir.
func NewService(mediaStore media.Store, dir string, logger *slog.Logger) *Service {
	return &Service{
		media:  mediaStore,
		dir:    dir,
		logger: logging.NewComponentLogger(logger, "captions"),
	}
}

// ConvertToSRT returns the path of an SRT rendition of the caption artifact,
// writing it on first use.
func (s *Service) ConvertToSRT(ctx context.Context, artifactID string) (string, error) {
	artifact, err := s.media.GetArtifact(ctx, artifactID)
	if err != nil {
		if errors.Is(err, media.ErrNotFound) {
			return "", services.Wrap(services.ErrNotFound, "captions", "load artifact", artifactID, err)
		}
		return "", services.Wrap(services.ErrTransient, "captions", "load artifact", artifactID, err)
	}
	if artifact.Kind != media.KindCaptions {
		return "", services.Wrap(services.ErrValidation, "captions", "load artifact",
			fmt.Sprintf("artifact %s has kind %q, want %q", artifactID, artifact.Kind, media.KindCaptions), nil)
	}

	target := s.targetPath(artifact)
	if info, err := os.Stat(target); err == nil && info.Size() > 0 {
		s.logger.Debug("caption cache hit", logging.String("artifact_id", artifactID), logging.String("path", target))
		return target, nil
	}

	source := localPath(artifact.URI)
	raw, err := os.ReadFile(source)
	if err != nil {
		return "", services.Wrap(services.ErrNotFound, "captions", "read artifact", source, err)
	}
	cues, err := parse(detectFormat(artifact), raw)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "captions", "parse artifact", artifactID, err)
	}
	cues = normalizeCues(cues)
	if len(cues) == 0 {
		return "", services.Wrap(services.ErrValidation, "captions", "parse artifact",
			fmt.Sprintf("artifact %s has no usable cues", artifactID), nil)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "captions", "create captions dir", s.dir, err)
	}
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, FormatSRT(cues), 0o644); err != nil {
		return "", services.Wrap(services.ErrTransient, "captions", "write srt", tmp, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return "", services.Wrap(services.ErrTransient, "captions", "write srt", target, err)
	}
	s.logger.Info("captions converted",
		logging.String("artifact_id", artifactID),
		logging.Int("cues", len(cues)),
		logging.String("path", target),
	)
	return target, nil
}

// targetPath keys the cached file by artifact id and, when present, the
// artifact cache key so regenerated captions get a fresh file.
func (s *Service) targetPath(artifact media.Artifact) string {
	name := sanitize(artifact.ID)
	if key := sanitize(artifact.CacheKey()); key != "" {
		name += "-" + key
	}
	return filepath.Join(s.dir, name+".srt")
}

func detectFormat(artifact media.Artifact) string {
	if format := strings.ToLower(media.MetaString(artifact.Meta, "format")); format != "" {
		return format
	}
	switch strings.ToLower(filepath.Ext(localPath(artifact.URI))) {
	case ".vtt":
		return FormatVTT
	case ".srt":
		return FormatSubRip
	default:
		return FormatJSON
	}
}

func parse(format string, raw []byte) ([]Cue, error) {
	switch format {
	case FormatJSON:
		return ParseJSON(raw)
	case FormatVTT, "webvtt":
		return ParseVTT(raw)
	case FormatSubRip:
		return ParseSRT(raw)
	default:
		return nil, fmt.Errorf("unsupported caption format %q", format)
	}
}

func localPath(uri string) string {
	return strings.TrimPrefix(strings.TrimSpace(uri), "file://")
}

func sanitize(value string) string {
	value = strings.TrimSpace(value)
	replacer := strings.NewReplacer("/", "-", "\\", "-", ":", "-", " ", "-")
	return strings.Trim(replacer.Replace(value), "-")
}
