// ABOUTME: Generic YAML documents built from persisted resources
// ABOUTME: Serves product components, generations, tables and other categories without generated code

package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/faktorips/faktorips.base-sub009/pkg/datasource"
	"github.com/faktorips/faktorips.base-sub009/pkg/toc"
)

// Document is a product component or any other non-table object
type Document struct {
	Entry  *toc.Entry
	Fields map[string]any
}

// ID returns the object id
func (d *Document) ID() string {
	return d.Entry.ObjectID
}

// Field returns a top-level field
func (d *Document) Field(name string) (any, bool) {
	v, ok := d.Fields[name]
	return v, ok
}

// GenerationDocument is one generation of a product component document
type GenerationDocument struct {
	Entry  *toc.GenerationEntry
	Fields map[string]any
}

// ProductComponentID returns the id of the owning product component
func (g *GenerationDocument) ProductComponentID() string {
	return g.Entry.ObjectID()
}

// ValidFrom returns the first day the generation applies
func (g *GenerationDocument) ValidFrom() time.Time {
	return g.Entry.ValidFrom
}

// Field returns a top-level field of the generation
func (g *GenerationDocument) Field(name string) (any, bool) {
	v, ok := g.Fields[name]
	return v, ok
}

// productFile is the persisted layout of a product component
type productFile struct {
	Fields      map[string]any            `yaml:"fields"`
	Generations map[string]map[string]any `yaml:"generations"`
}

func decode(ctx context.Context, in Input, out any) error {
	rc, err := in.Open(ctx)
	if errors.Is(err, datasource.ErrResourceNotFound) && in.Entry.Resource == "" {
		// entries without a resource decode as empty documents
		return nil
	}
	if err != nil {
		return err
	}
	defer rc.Close()

	if err := yaml.NewDecoder(rc).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("factory: decode %s: %w", in.Entry.Resource, err)
	}
	return nil
}

// YAMLDocument is a Constructor decoding the entry's resource as YAML. Tables
// become TableDocuments, generations GenerationDocuments, everything else a
// Document.
func YAMLDocument(ctx context.Context, in Input) (any, error) {
	switch {
	case in.Generation != nil:
		var pf productFile
		if err := decode(ctx, in, &pf); err != nil {
			return nil, err
		}
		return &GenerationDocument{Entry: in.Generation, Fields: generationFields(pf, in.Generation.ValidFrom)}, nil
	case in.Entry.Category == toc.Table:
		var tf tableFile
		if err := decode(ctx, in, &tf); err != nil {
			return nil, err
		}
		return newTableDocument(in.Entry, tf)
	case in.Entry.Category == toc.ProductComponent:
		var pf productFile
		if err := decode(ctx, in, &pf); err != nil {
			return nil, err
		}
		return &Document{Entry: in.Entry, Fields: orEmpty(pf.Fields)}, nil
	default:
		var fields map[string]any
		if err := decode(ctx, in, &fields); err != nil {
			return nil, err
		}
		return &Document{Entry: in.Entry, Fields: orEmpty(fields)}, nil
	}
}

func generationFields(pf productFile, validFrom time.Time) map[string]any {
	for date, fields := range pf.Generations {
		d, err := toc.ParseDate(date)
		if err == nil && d.Equal(validFrom) {
			return orEmpty(fields)
		}
	}
	return map[string]any{}
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
