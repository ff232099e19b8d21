package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/faktorips/faktorips.base-sub009/internal/logger"
	"github.com/faktorips/faktorips.base-sub009/pkg/toc"
)

type product struct {
	id, repo string
}

func (p *product) ID() string { return p.id }

type generation struct {
	id   string
	from time.Time
}

func (g *generation) ProductComponentID() string { return g.id }
func (g *generation) ValidFrom() time.Time       { return g.from }

type object struct {
	category toc.Category
	id       string
}

// fakeFactory counts calls per key and can be told to fail
type fakeFactory struct {
	repo  string
	delay time.Duration

	mu    sync.Mutex
	calls map[string]int
	fail  map[string]error
}

func newFakeFactory(repo string) *fakeFactory {
	return &fakeFactory{repo: repo, calls: map[string]int{}, fail: map[string]error{}}
}

func (f *fakeFactory) enter(key string) error {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[key]++
	if err, ok := f.fail[key]; ok {
		delete(f.fail, key)
		return err
	}
	return nil
}

func (f *fakeFactory) failOnce(key string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[key] = err
}

func (f *fakeFactory) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *fakeFactory) NewProductComponent(ctx context.Context, e *toc.Entry) (ProductComponent, error) {
	if err := f.enter(e.ObjectID); err != nil {
		return nil, err
	}
	return &product{id: e.ObjectID, repo: f.repo}, nil
}

func (f *fakeFactory) NewGeneration(ctx context.Context, ge *toc.GenerationEntry) (Generation, error) {
	key := NewGenerationKey(ge.ObjectID(), ge.ValidFrom).String()
	if err := f.enter(key); err != nil {
		return nil, err
	}
	return &generation{id: ge.ObjectID(), from: ge.ValidFrom}, nil
}

func (f *fakeFactory) newObject(e *toc.Entry) (Object, error) {
	if err := f.enter(e.ObjectID); err != nil {
		return nil, err
	}
	return &object{category: e.Category, id: e.ObjectID}, nil
}

func (f *fakeFactory) NewTable(ctx context.Context, e *toc.Entry) (Object, error) {
	return f.newObject(e)
}

func (f *fakeFactory) NewEnumContent(ctx context.Context, e *toc.Entry) (Object, error) {
	return f.newObject(e)
}

func (f *fakeFactory) NewTestCase(ctx context.Context, e *toc.Entry) (Object, error) {
	return f.newObject(e)
}

func (f *fakeFactory) NewModelType(ctx context.Context, e *toc.Entry) (Object, error) {
	return f.newObject(e)
}

func (f *fakeFactory) NewEnumAdapter(ctx context.Context, e *toc.Entry) (Object, error) {
	return f.newObject(e)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// productEntry describes a product component with yearly generations
func productEntry(id, kind, version string, years ...int) (toc.Entry, []time.Time) {
	dates := make([]time.Time, 0, len(years))
	for _, y := range years {
		dates = append(dates, day(y, 1, 1))
	}
	return toc.Entry{
		ObjectID:          id,
		Category:          toc.ProductComponent,
		KindID:            kind,
		VersionID:         version,
		ImplementationKey: "test.Product",
	}, dates
}

type repoLayout struct {
	products []string
	tables   []string
}

func newRepo(t *testing.T, name string, layout repoLayout, opts ...Option) (*Repository, *fakeFactory) {
	t.Helper()
	b := toc.NewBuilder()
	for i, id := range layout.products {
		e, dates := productEntry(id, id, fmt.Sprint(i), 2020, 2021, 2022)
		b.Add(e, dates...)
	}
	for _, id := range layout.tables {
		b.Add(toc.Entry{ObjectID: id, Category: toc.Table, ImplementationKey: "impl." + id})
	}
	contents, err := b.Build()
	require.NoError(t, err)

	f := newFakeFactory(name)
	opts = append([]Option{WithLogger(logger.Nop())}, opts...)
	return New(name, contents, f, opts...), f
}
