package state

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const (
	backupSuffix  = ".backup.gz"
	stateFilePerm = 0o600
)

// stateFile is the on-disk layout.
type stateFile struct {
	Pipelines map[string]*Pipeline `json:"pipelines"`
	Metadata  stateMetadata        `json:"metadata"`
}

type stateMetadata struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newStateFile() *stateFile {
	now := time.Now().UTC()
	return &stateFile{
		Pipelines: make(map[string]*Pipeline),
		Metadata:  stateMetadata{CreatedAt: now, UpdatedAt: now},
	}
}

// load reads the state file, falling back to the gzip backup when the
// primary is corrupt and to an empty store when both are unreadable.
func (s *store) load() error {
	ctx := context.Background()
	path := s.config.Path

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		s.file = newStateFile()
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read state file %s: %w", path, err)
	}

	file, err := decodeState(data)
	if err == nil {
		s.file = file
		return nil
	}
	s.logger.Warn(ctx, "state file is corrupt, trying backup",
		zap.String("path", path),
		zap.Error(err))

	file, berr := readBackup(path + backupSuffix)
	if berr == nil {
		// Set the corrupt primary aside so the restore does not back it
		// up over the only good copy.
		if rerr := os.Rename(path, path+".corrupt"); rerr != nil {
			return fmt.Errorf("failed to set aside corrupt state file: %w", rerr)
		}
		s.file = file
		if werr := s.persistLocked(ctx); werr != nil {
			return fmt.Errorf("failed to restore state file from backup: %w", werr)
		}
		s.logger.Warn(ctx, "restored state file from backup",
			zap.String("path", path),
			zap.String("corrupt_copy", path+".corrupt"),
			zap.Int("pipelines", len(file.Pipelines)))
		return nil
	}

	s.logger.Warn(ctx, "state backup unusable, starting with empty state",
		zap.String("path", path),
		zap.Error(berr))
	s.file = newStateFile()
	return nil
}

func decodeState(data []byte) (*stateFile, error) {
	var file stateFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}
	if file.Pipelines == nil {
		file.Pipelines = make(map[string]*Pipeline)
	}
	return &file, nil
}

func readBackup(path string) (*stateFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open backup %s: %w", path, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup %s: %w", path, err)
	}
	defer gz.Close()

	data, err := io.ReadAll(gz)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress backup %s: %w", path, err)
	}
	return decodeState(data)
}

// persistLocked writes the state file atomically. Callers hold s.mu.
func (s *store) persistLocked(ctx context.Context) error {
	start := time.Now()
	err := s.persistOnce()

	status := "ok"
	if err != nil {
		status = "error"
	}
	if s.writesTotal != nil {
		s.writesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	}
	if s.writeDuration != nil {
		s.writeDuration.Record(ctx, time.Since(start).Seconds())
	}

	if err != nil {
		return fmt.Errorf("failed to persist state: %w", err)
	}
	return nil
}

func (s *store) persistOnce() error {
	path := s.config.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	if err := backupFile(path); err != nil {
		return err
	}

	s.file.Metadata.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(s.file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".pipeline_state-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(stateFilePerm); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set state file permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close state file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

// backupFile compresses the current state file to path+".backup.gz".
// A missing primary is not an error.
func backupFile(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read state file for backup: %w", err)
	}

	backupPath := path + backupSuffix
	tmp, err := os.CreateTemp(filepath.Dir(path), ".state_backup-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp backup file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(stateFilePerm); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set backup permissions: %w", err)
	}
	gz := gzip.NewWriter(tmp)
	if _, err := gz.Write(data); err != nil {
		gz.Close()
		tmp.Close()
		return fmt.Errorf("failed to compress backup: %w", err)
	}
	if err := gz.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to finish backup: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close backup file: %w", err)
	}
	if err := os.Rename(tmpName, backupPath); err != nil {
		return fmt.Errorf("failed to replace backup file: %w", err)
	}
	return nil
}
