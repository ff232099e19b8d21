// ABOUTME: Tests for the constructor registry
// ABOUTME: Wires the registry into a real repository over an in-memory badger source

package factory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faktorips/faktorips.base-sub009/internal/logger"
	"github.com/faktorips/faktorips.base-sub009/pkg/datasource"
	"github.com/faktorips/faktorips.base-sub009/pkg/repository"
	"github.com/faktorips/faktorips.base-sub009/pkg/toc"
)

const motorProduct = `
fields:
  name: Motor Basic
  deductible: 500
generations:
  2020-01-01:
    premium: 100
  2021-01-01:
    premium: 120
`

const ageTable = `
columns: [ageFrom, ageTo, factor]
rows:
  - [18, 24, 1.8]
  - [25, 64, 1.0]
  - [65, 99, 1.4]
index:
  lower: ageFrom
  upper: ageTo
`

func memorySource(t *testing.T, resources map[string]string) *datasource.BadgerSource {
	t.Helper()
	src, err := datasource.OpenBadger("", true, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })

	data := make(map[string][]byte, len(resources))
	for k, v := range resources {
		data[k] = []byte(v)
	}
	require.NoError(t, src.PutAll(context.Background(), data))
	return src
}

func motorTOC(t *testing.T) *toc.TableOfContents {
	t.Helper()
	contents, err := toc.NewBuilder().
		Add(toc.Entry{
			ObjectID:                    "motor.Basic 2020",
			Category:                    toc.ProductComponent,
			KindID:                      "motor.Basic",
			VersionID:                   "2020",
			ImplementationKey:           "motor.Product",
			GenerationImplementationKey: "motor.ProductGen",
			Resource:                    "motor/Basic.yaml",
		}, day(2020, 1, 1), day(2021, 1, 1)).
		Add(toc.Entry{ObjectID: "motor.AgeFactors", Category: toc.Table, ImplementationKey: "motor.AgeTable", Resource: "motor/AgeFactors.yaml"}).
		Add(toc.Entry{ObjectID: "motor.Colors", Category: toc.EnumContent, ImplementationKey: "enum"}).
		Build()
	require.NoError(t, err)
	return contents
}

func TestRegistryWithRepository(t *testing.T) {
	ctx := context.Background()
	src := memorySource(t, map[string]string{
		"motor/Basic.yaml":      motorProduct,
		"motor/AgeFactors.yaml": ageTable,
	})
	reg := NewRegistry(src, YAMLDocument)
	repo := repository.New("motor", motorTOC(t), reg, repository.WithLogger(logger.Nop()))

	pc, err := repo.GetExistingProductComponent(ctx, "motor.Basic 2020")
	require.NoError(t, err)
	doc, ok := pc.(*Document)
	require.True(t, ok)
	name, _ := doc.Field("name")
	assert.Equal(t, "Motor Basic", name)

	gen, err := repo.GetExistingGenerationAt(ctx, "motor.Basic 2020", day(2021, 7, 1))
	require.NoError(t, err)
	gd, ok := gen.(*GenerationDocument)
	require.True(t, ok)
	premium, _ := gd.Field("premium")
	assert.Equal(t, 120, premium)

	prev, err := repo.GetPreviousGeneration(ctx, gen)
	require.NoError(t, err)
	premium, _ = prev.(*GenerationDocument).Field("premium")
	assert.Equal(t, 100, premium)

	table, err := repo.GetTableByImplementationKey(ctx, "motor.AgeTable")
	require.NoError(t, err)
	td, ok := table.(*TableDocument)
	require.True(t, ok)
	row, ok := td.Lookup(30)
	require.True(t, ok)
	factor, _ := td.Value(row, "factor")
	assert.Equal(t, 1.0, factor)

	enum, err := repo.GetEnumContent(ctx, "motor.Colors")
	require.NoError(t, err)
	assert.Empty(t, enum.(*Document).Fields, "entries without a resource decode empty")
}

type customProduct struct{ id string }

func (c *customProduct) ID() string { return c.id }

func TestRegisteredConstructorWins(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(nil, YAMLDocument)
	require.NoError(t, reg.Register("motor.Product", func(ctx context.Context, in Input) (any, error) {
		return &customProduct{id: in.Entry.ObjectID}, nil
	}))
	assert.ErrorIs(t, reg.Register("motor.Product", YAMLDocument), ErrDuplicateConstructor)

	pc, err := reg.NewProductComponent(ctx, motorTOC(t).FindProductComponent("motor.Basic 2020"))
	require.NoError(t, err)
	assert.IsType(t, &customProduct{}, pc)
}

func TestRegistryErrors(t *testing.T) {
	ctx := context.Background()
	contents := motorTOC(t)

	strict := NewRegistry(nil, nil)
	_, err := strict.NewTable(ctx, contents.FindByID(toc.Table, "motor.AgeFactors"))
	assert.ErrorIs(t, err, ErrNoConstructor)

	wrong := NewRegistry(nil, func(ctx context.Context, in Input) (any, error) {
		return "not a product", nil
	})
	_, err = wrong.NewProductComponent(ctx, contents.FindProductComponent("motor.Basic 2020"))
	assert.ErrorIs(t, err, ErrWrongType)
	_, err = wrong.NewGeneration(ctx, contents.FindProductComponent("motor.Basic 2020").Timeline.Latest())
	assert.ErrorIs(t, err, ErrWrongType)

	// a resource that is declared but missing from the source
	empty := NewRegistry(memorySource(t, nil), YAMLDocument)
	_, err = empty.NewProductComponent(ctx, contents.FindProductComponent("motor.Basic 2020"))
	assert.ErrorIs(t, err, datasource.ErrResourceNotFound)
}

func TestRepositoryWrapsConstructorFailure(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	reg := NewRegistry(nil, func(ctx context.Context, in Input) (any, error) {
		return nil, boom
	})
	repo := repository.New("motor", motorTOC(t), reg, repository.WithLogger(logger.Nop()))

	_, err := repo.GetTable(ctx, "motor.AgeFactors")
	assert.ErrorIs(t, err, repository.ErrFactoryFailure)
	assert.ErrorIs(t, err, boom)
}
