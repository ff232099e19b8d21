// ABOUTME: YAML manifest loader feeding the table of contents builder
// ABOUTME: Digests the raw manifest with blake2b so reloads can detect changes

package toc

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-crypt/x/blake2b"
	"gopkg.in/yaml.v3"
)

// Manifest is the persisted descriptor list of one repository
type Manifest struct {
	Repository string          `yaml:"repository,omitempty"`
	Entries    []ManifestEntry `yaml:"entries"`
}

// ManifestEntry is one descriptor as written in the manifest
type ManifestEntry struct {
	Category                 string   `yaml:"category"`
	ID                       string   `yaml:"id"`
	Implementation           string   `yaml:"implementation,omitempty"`
	Resource                 string   `yaml:"resource,omitempty"`
	Kind                     string   `yaml:"kind,omitempty"`
	Version                  string   `yaml:"version,omitempty"`
	ValidTo                  string   `yaml:"validTo,omitempty"`
	GenerationImplementation string   `yaml:"generationImplementation,omitempty"`
	Generations              []string `yaml:"generations,omitempty"`
	EnumType                 string   `yaml:"enumType,omitempty"`
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// ParseDate accepts RFC 3339 timestamps and plain dates; dates without a
// zone are read as UTC
func ParseDate(s string) (time.Time, error) {
	var firstErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// Digest returns the hex blake2b-256 digest of data
func Digest(data []byte) (string, error) {
	h, err := blake2b.New(32, nil)
	if err != nil {
		return "", err
	}
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// DecodeManifest parses a manifest without building it
func DecodeManifest(data []byte) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("toc: decode manifest: %w", err)
	}
	return &m, nil
}

// Builder turns the manifest into a builder holding every entry
func (m *Manifest) Builder() (*Builder, error) {
	b := NewBuilder()
	for _, me := range m.Entries {
		cat, err := ParseCategory(me.Category)
		if err != nil {
			return nil, malformed(cat, me.ID, fmt.Errorf("%w %q", ErrUnknownCategory, me.Category))
		}

		e := Entry{
			ObjectID:                    me.ID,
			ImplementationKey:           me.Implementation,
			Category:                    cat,
			Resource:                    me.Resource,
			KindID:                      me.Kind,
			VersionID:                   me.Version,
			GenerationImplementationKey: me.GenerationImplementation,
			EnumType:                    me.EnumType,
		}
		if me.ValidTo != "" {
			to, err := ParseDate(me.ValidTo)
			if err != nil {
				return nil, malformed(cat, me.ID, fmt.Errorf("%w: validTo: %v", ErrMalformedIndex, err))
			}
			e.ValidTo = &to
		}

		generations := make([]time.Time, 0, len(me.Generations))
		for _, g := range me.Generations {
			d, err := ParseDate(g)
			if err != nil {
				return nil, malformed(cat, me.ID, fmt.Errorf("%w: generation: %v", ErrMalformedIndex, err))
			}
			generations = append(generations, d)
		}
		b.Add(e, generations...)
	}
	return b, nil
}

// LoadManifest reads a YAML manifest and builds its table of contents
func LoadManifest(r io.Reader) (*TableOfContents, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("toc: read manifest: %w", err)
	}
	m, err := DecodeManifest(data)
	if err != nil {
		return nil, err
	}
	b, err := m.Builder()
	if err != nil {
		return nil, err
	}
	fp, err := Digest(data)
	if err != nil {
		return nil, err
	}
	return b.WithFingerprint(fp).Build()
}

// LoadManifestFile is LoadManifest for a file path
func LoadManifestFile(path string) (*TableOfContents, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("toc: open manifest: %w", err)
	}
	defer f.Close()
	return LoadManifest(f)
}

// DigestFile returns the blake2b-256 digest of the file at path
func DigestFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return Digest(data)
}
