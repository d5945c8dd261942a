/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package datasink

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// FileName is the per-participant data file, "di" for dyadic interaction.
func FileName(participantID string) string {
	return "di_" + participantID + ".csv"
}

// FileSink appends CSV rows to a file, flushing after every row.
type FileSink struct {
	f *os.File
	w *csv.Writer
}

// OpenFile opens (or creates) the participant's data file in dir.
func OpenFile(dir, participantID string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	path := filepath.Join(dir, FileName(participantID))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open data file: %w", err)
	}

	return &FileSink{f: f, w: csv.NewWriter(f)}, nil
}

func (s *FileSink) Path() string {
	return s.f.Name()
}

func (s *FileSink) WriteRow(_ context.Context, fields []string) error {
	if err := s.w.Write(fields); err != nil {
		return fmt.Errorf("write %s: %w", s.f.Name(), err)
	}

	s.w.Flush()

	return s.w.Error()
}

func (s *FileSink) Close() error {
	s.w.Flush()

	if err := s.w.Error(); err != nil {
		_ = s.f.Close()

		return err
	}

	return s.f.Close()
}
