package exam

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joyat/exam-portal/internal/storage"
)

const (
	snapshotVersion  = 1
	backupTimeLayout = "20060102_150405"
)

var backupNamePattern = regexp.MustCompile(`^backup_(\d{8}_\d{6})(_[0-9a-f]{8})?\.json$`)

// Backup writes the exams, results and school list to a new snapshot and
// returns its name.
func (s *Service) Backup(ctx context.Context) (BackupInfo, error) {
	if s.backups == nil {
		return BackupInfo{}, storageErr("Backups are not configured", nil)
	}
	data, err := s.view(ctx)
	if err != nil {
		return BackupInfo{}, err
	}
	exams, results := data.Exams, data.Results
	now := s.now()
	snap := Snapshot{
		Version: snapshotVersion,
		Created: now,
		Exams:   exams,
		Results: results,
		Schools: s.ListSchools(),
	}
	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return BackupInfo{}, storageErr("Failed to encode backup", err)
	}
	name := fmt.Sprintf("backup_%s_%s.json", now.Format(backupTimeLayout), strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	if _, err := s.backups.Put(name, bytes.NewReader(b)); err != nil {
		return BackupInfo{}, storageErr("Failed to write backup", err)
	}
	log.Printf("backup %s written (%d exams, %d results)", name, len(exams), len(results))
	return BackupInfo{Name: name, Created: now}, nil
}

// ListBackups returns stored snapshots, newest first.
func (s *Service) ListBackups(_ context.Context) ([]BackupInfo, error) {
	if s.backups == nil {
		return []BackupInfo{}, nil
	}
	keys, err := s.backups.List("backup_")
	if err != nil {
		return nil, storageErr("Failed to list backups", err)
	}
	out := make([]BackupInfo, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		m := backupNamePattern.FindStringSubmatch(keys[i])
		if m == nil {
			continue
		}
		info := BackupInfo{Name: keys[i]}
		if t, err := time.ParseInLocation(backupTimeLayout, m[1], time.Local); err == nil {
			info.Created = t
		}
		out = append(out, info)
	}
	return out, nil
}

// Restore replaces the exam and result collections with those of the named
// snapshot. The school list in the snapshot is informational only.
func (s *Service) Restore(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return validationErr(CodeInvalidInput, "Missing backup name")
	}
	if s.backups == nil || !backupNamePattern.MatchString(name) {
		return notFoundErr(CodeBackupNotFound, "Backup not found")
	}
	rc, err := s.backups.Get(name)
	if errors.Is(err, storage.ErrNotFound) {
		return notFoundErr(CodeBackupNotFound, "Backup not found")
	}
	if err != nil {
		return storageErr("Failed to read backup", err)
	}
	defer rc.Close()

	snap, err := decodeSnapshot(rc)
	if err != nil {
		return err
	}
	err = s.update(ctx, func(c *Collections) error {
		c.Exams = snap.Exams
		c.Results = snap.Results
		return nil
	})
	if err != nil {
		return err
	}
	log.Printf("backup %s restored (%d exams, %d results)", name, len(snap.Exams), len(snap.Results))
	return nil
}

// decodeSnapshot parses a backup document. Both collections must be present
// and every exam must pass the checks CreateExam applies, under a code that
// is unique once upper-cased. Exams are re-keyed by that code and results
// without an id get one.
func decodeSnapshot(r io.Reader) (Snapshot, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return Snapshot{}, validationErr(CodeBadBackup, "Invalid backup file: %v", err)
	}
	if _, ok := raw["exams"]; !ok {
		return Snapshot{}, validationErr(CodeBadBackup, "Invalid backup file: missing exams")
	}
	if _, ok := raw["results"]; !ok {
		return Snapshot{}, validationErr(CodeBadBackup, "Invalid backup file: missing results")
	}

	var snap Snapshot
	if err := json.Unmarshal(raw["exams"], &snap.Exams); err != nil {
		return Snapshot{}, validationErr(CodeBadBackup, "Invalid backup file: exams: %v", err)
	}
	if err := json.Unmarshal(raw["results"], &snap.Results); err != nil {
		return Snapshot{}, validationErr(CodeBadBackup, "Invalid backup file: results: %v", err)
	}
	if v, ok := raw["schools"]; ok {
		_ = json.Unmarshal(v, &snap.Schools)
	}

	exams := make(map[string]Exam, len(snap.Exams))
	for key, e := range snap.Exams {
		code := normalizeCode(e.Code)
		if code == "" {
			code = normalizeCode(key)
		}
		if code == "" {
			return Snapshot{}, validationErr(CodeBadBackup, "Invalid backup file: exam without a code")
		}
		if _, dup := exams[code]; dup {
			return Snapshot{}, validationErr(CodeBadBackup, "Invalid backup file: exam code %s appears twice", code)
		}
		if err := validateExam(NewExamInput{Title: e.Title, Duration: e.Duration, Questions: e.Questions}); err != nil {
			return Snapshot{}, validationErr(CodeBadBackup, "Invalid backup file: exam %s: %v", code, err)
		}
		e.Code = code
		exams[code] = e
	}
	snap.Exams = exams
	if snap.Results == nil {
		snap.Results = []Result{}
	}
	for i := range snap.Results {
		if snap.Results[i].ID == "" {
			snap.Results[i].ID = uuid.NewString()
		}
	}
	return snap, nil
}
