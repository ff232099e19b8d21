// ABOUTME: Entry and category model for the table of contents
// ABOUTME: Entries are immutable descriptors handed to object factories

package toc

import (
	"strings"
	"time"
)

// Category identifies which kind of object an entry describes
type Category int

const (
	ProductComponent Category = iota
	Table
	EnumContent
	TestCase
	ModelType
	EnumAdapter
)

// Categories lists every category in declaration order
var Categories = []Category{ProductComponent, Table, EnumContent, TestCase, ModelType, EnumAdapter}

var categoryNames = map[Category]string{
	ProductComponent: "ProductComponent",
	Table:            "Table",
	EnumContent:      "EnumContent",
	TestCase:         "TestCase",
	ModelType:        "ModelType",
	EnumAdapter:      "EnumAdapter",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "Unknown"
}

// Valid reports whether c is one of the known categories
func (c Category) Valid() bool {
	_, ok := categoryNames[c]
	return ok
}

// ParseCategory resolves a category name, ignoring case
func ParseCategory(name string) (Category, error) {
	for c, n := range categoryNames {
		if strings.EqualFold(n, name) {
			return c, nil
		}
	}
	return -1, &MalformedIndexError{ObjectID: name, Category: -1, Err: ErrUnknownCategory}
}

// Entry describes one stored object
type Entry struct {
	ObjectID          string   // Unique within its category
	ImplementationKey string   // Opaque token for the object factory
	Category          Category // Which cache and factory method serve it
	Resource          string   // Locator for the deferred data source

	// Product components only
	KindID                      string
	VersionID                   string
	ValidTo                     *time.Time
	GenerationImplementationKey string
	Timeline                    *Timeline

	// Enum contents and enum adapters only; defaults to ObjectID
	EnumType string
}

// GenerationEntry describes one time slice of a product component
type GenerationEntry struct {
	Parent    *Entry
	ValidFrom time.Time // Always UTC
}

// ObjectID returns the id of the owning product component
func (g *GenerationEntry) ObjectID() string {
	return g.Parent.ObjectID
}
