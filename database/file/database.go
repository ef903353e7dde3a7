// Package file reads a YAML schema snapshot as a pseudo database.
package file

import (
	"context"

	"github.com/sqldef/schemadef/schema"
)

// Pseudo database for comparison between snapshot files
type FileDatabase struct {
	file string
	// snapshot is set when the content was read up front, e.g. from stdin.
	snapshot *string
}

func NewDatabase(file string) *FileDatabase {
	return &FileDatabase{
		file: file,
	}
}

// NewSnapshotDatabase serves a snapshot already held in memory.
func NewSnapshotDatabase(snapshot string) *FileDatabase {
	return &FileDatabase{
		file:     "-",
		snapshot: &snapshot,
	}
}

func (f *FileDatabase) ExportSchema(ctx context.Context) (*schema.Schema, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.snapshot != nil {
		return schema.ParseYAMLString(*f.snapshot)
	}
	return schema.LoadYAML(f.file)
}

func (f *FileDatabase) Close() error {
	return nil
}
