package dialect

import (
	"strings"

	"github.com/lib/pq"
)

type Escaper interface {
	Escape(name string) string
	MaxIdentifierLength() int
}

// quoteEscaper wraps a name in open/close and doubles any embedded close.
type quoteEscaper struct {
	open, close string
	maxLength   int
}

func (e quoteEscaper) Escape(name string) string {
	return e.open + strings.ReplaceAll(name, e.close, e.close+e.close) + e.close
}

func (e quoteEscaper) MaxIdentifierLength() int {
	return e.maxLength
}

type postgresEscaper struct{}

func (postgresEscaper) Escape(name string) string {
	return pq.QuoteIdentifier(name)
}

func (postgresEscaper) MaxIdentifierLength() int {
	return 63
}

func bracketEscaper(maxLength int) Escaper {
	return quoteEscaper{open: "[", close: "]", maxLength: maxLength}
}

func backtickEscaper(maxLength int) Escaper {
	return quoteEscaper{open: "`", close: "`", maxLength: maxLength}
}

func doubleQuoteEscaper(maxLength int) Escaper {
	return quoteEscaper{open: `"`, close: `"`, maxLength: maxLength}
}

// Truncate shortens a name to the dialect's identifier limit without
// splitting a multi-byte character. Long names are never rejected.
func (d *Dialect) Truncate(name string) string {
	return truncate(name, d.MaxIdentifierLength())
}

// Suffixed appends suffix to name, shortening name first so the result
// fits the identifier limit.
func (d *Dialect) Suffixed(name, suffix string) string {
	max := d.MaxIdentifierLength()
	if max <= len(suffix) {
		return name + suffix
	}
	return truncate(name, max-len(suffix)) + suffix
}

func truncate(name string, max int) string {
	if max <= 0 || len(name) <= max {
		return name
	}
	cut := 0
	for i := range name {
		if i > max {
			break
		}
		cut = i
	}
	return name[:cut]
}

// Quote truncates a name and, when escape is set, escapes it.
func (d *Dialect) Quote(name string, escape bool) string {
	name = d.Truncate(name)
	if escape {
		return d.Escape(name)
	}
	return name
}

// Qualify returns the escaped owner.name, or the escaped name alone when the
// owner is empty, not requested, or the dialect has no schema namespaces.
func (d *Dialect) Qualify(owner, name string, includeSchema bool) string {
	return d.QualifyName(owner, name, includeSchema, true)
}

func (d *Dialect) QualifyName(owner, name string, includeSchema, escape bool) string {
	if includeSchema && owner != "" && d.Capabilities.SchemaQualified {
		return d.Quote(owner, escape) + "." + d.Quote(name, escape)
	}
	return d.Quote(name, escape)
}
