// Package ddl renders dialect-specific DDL from a schema model: full CREATE
// scripts through Generator and incremental statements through Migration.
package ddl

import (
	"errors"

	"github.com/sqldef/schemadef/schema"
)

var (
	ErrNilArgument       = schema.ErrNilArgument
	ErrNoColumns         = schema.ErrNoColumns
	ErrUnnamedConstraint = errors.New("constraint has no name")
)

type Options struct {
	// IncludeSchema prefixes object names with their owner where the
	// dialect has schema namespaces.
	IncludeSchema bool
	EscapeNames   bool
	// TranslateCheck may rewrite a check expression for the target dialect.
	// Returning false drops the constraint.
	TranslateCheck func(expression string) (string, bool)
	// SelfReferencingCascade overrides the dialect's policy when set.
	SelfReferencingCascade *bool
	CommentHeader          bool
}

func DefaultOptions() Options {
	return Options{EscapeNames: true}
}
