// ABOUTME: Object factory contract and the object shapes the repository serves
// ABOUTME: Objects are opaque except for product components and generations

package repository

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/faktorips/faktorips.base-sub009/pkg/toc"
)

// Object is any materialized runtime object
type Object = any

// ProductComponent is a materialized product component
type ProductComponent interface {
	ID() string
}

// Generation is a materialized time slice of a product component. Generations
// must be pointer-like so the repository can identify the one it created.
type Generation interface {
	ProductComponentID() string
	ValidFrom() time.Time
}

// ObjectFactory creates runtime objects from table of contents entries.
// Implementations must be deterministic and safe for concurrent use.
type ObjectFactory interface {
	NewProductComponent(ctx context.Context, e *toc.Entry) (ProductComponent, error)
	NewGeneration(ctx context.Context, ge *toc.GenerationEntry) (Generation, error)
	NewTable(ctx context.Context, e *toc.Entry) (Object, error)
	NewEnumContent(ctx context.Context, e *toc.Entry) (Object, error)
	NewTestCase(ctx context.Context, e *toc.Entry) (Object, error)
	NewModelType(ctx context.Context, e *toc.Entry) (Object, error)
	NewEnumAdapter(ctx context.Context, e *toc.Entry) (Object, error)
}

// GenerationKey identifies one generation in a repository
type GenerationKey struct {
	ID        string
	ValidFrom time.Time // UTC
}

// NewGenerationKey normalizes validFrom to UTC
func NewGenerationKey(id string, validFrom time.Time) GenerationKey {
	return GenerationKey{ID: id, ValidFrom: validFrom.UTC()}
}

func (k GenerationKey) String() string {
	return fmt.Sprintf("%s@%s", k.ID, k.ValidFrom.Format(time.RFC3339Nano))
}

// sameObject reports whether a and b are the identical object
func sameObject(a, b any) bool {
	if a == nil || b == nil {
		return false
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

// isNil catches typed nil pointers hidden in interfaces
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
