package codegen

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func prop(base string, typ TypeRef) *Property {
	return &Property{Name: base, BaseName: base, Type: typ}
}

// petGraph is Pet (discriminated on petType) with Cat and Dog variants.
// Dog references Person and itself.
func petGraph() []*Model {
	petType := prop("petType", PrimitiveType("string"))
	name := prop("name", PrimitiveType("string"))

	pet := &Model{
		Name: "Pet",
		Vars: []*Property{petType, name},
		Discriminator: &Discriminator{
			PropertyName: "petType",
			MappedModels: []MappedModel{
				{MappingName: "cat", ModelName: "Cat"},
				{MappingName: "dog", ModelName: "Dog"},
			},
		},
		Children: []string{"Cat", "Dog"},
	}
	pet.AllVars = pet.Vars

	cat := &Model{
		Name:    "Cat",
		Parent:  "Pet",
		Vars:    []*Property{prop("huntingSkill", PrimitiveType("string"))},
		Imports: []string{"Pet"},
	}
	cat.AllVars = []*Property{prop("petType", PrimitiveType("string")), prop("name", PrimitiveType("string")), cat.Vars[0]}

	dog := &Model{
		Name:    "Dog",
		Parent:  "Pet",
		Vars:    []*Property{prop("owner", ModelType("Person")), prop("friends", ArrayOf(ModelType("Dog")))},
		Imports: []string{"Pet", "Person"},
	}
	dog.AllVars = append([]*Property{prop("petType", PrimitiveType("string")), prop("name", PrimitiveType("string"))}, dog.Vars...)

	person := &Model{Name: "Person", Vars: []*Property{prop("name", PrimitiveType("string"))}}
	person.AllVars = person.Vars

	return []*Model{pet, cat, dog, person}
}

func newTestProcessor(t *testing.T, tagged bool, logger *slog.Logger) *Processor {
	t.Helper()
	opts := DefaultOptions()
	opts.TaggedUnions = tagged
	var popts []ProcessorOption
	if logger != nil {
		popts = append(popts, WithLogger(logger))
	}
	p, err := New(opts, popts...)
	require.NoError(t, err)
	return p
}

func byName(files []*ModelFile) map[string]*ModelFile {
	out := make(map[string]*ModelFile, len(files))
	for _, f := range files {
		out[f.Model.Name] = f
	}
	return out
}

func discriminatorValue(m *Model, base string) string {
	for _, p := range m.AllVars {
		if p.BaseName == base {
			return p.DiscriminatorValue
		}
	}
	return ""
}

func TestProcessModels_TaggedUnions(t *testing.T) {
	p := newTestProcessor(t, true, nil)
	files := byName(p.ProcessModels(petGraph()))

	pet := files["Pet"]
	require.NotNil(t, pet)
	assert.True(t, pet.TaggedUnions)
	assert.Subset(t, pet.Model.Imports, []string{"Cat", "Dog"})

	for _, child := range []string{"Cat", "Dog"} {
		m := files[child].Model
		assert.NotContains(t, m.Imports, "Pet", "%s must not import its parent", child)
		assert.NotContains(t, m.Imports, child, "%s must not import itself", child)
	}
	assert.Equal(t, []string{"Person"}, files["Dog"].Model.Imports)
	assert.Empty(t, files["Cat"].Model.Imports)
	assert.Equal(t, []Import{{Classname: "Cat", Filename: "./cat"}, {Classname: "Dog", Filename: "./dog"}}, pet.Imports)

	assert.Equal(t, "cat", discriminatorValue(files["Cat"].Model, "petType"))
	assert.Equal(t, "dog", discriminatorValue(files["Dog"].Model, "petType"))
}

func TestProcessModels_StructuralInheritance(t *testing.T) {
	p := newTestProcessor(t, false, nil)
	files := byName(p.ProcessModels(petGraph()))

	assert.False(t, files["Dog"].TaggedUnions)
	assert.Equal(t, []string{"Pet", "Person"}, files["Dog"].Model.Imports)
	assert.Empty(t, files["Pet"].Model.Imports)
	assert.Empty(t, discriminatorValue(files["Dog"].Model, "petType"))
	assert.Equal(t, []Import{{Classname: "Pet", Filename: "./pet"}}, files["Cat"].Imports)
}

func TestProcessModels_ExplicitOverrideWins(t *testing.T) {
	models := petGraph()
	override := "DOG"
	models[2].DiscriminatorOverride = &override

	p := newTestProcessor(t, true, nil)
	files := byName(p.ProcessModels(models))
	assert.Empty(t, discriminatorValue(files["Dog"].Model, "petType"))
	assert.Equal(t, "DOG", *files["Dog"].Model.DiscriminatorOverride)
	assert.Equal(t, "cat", discriminatorValue(files["Cat"].Model, "petType"))
}

func TestProcessModels_RecursiveParentReference(t *testing.T) {
	models := petGraph()
	cat := models[1]
	cat.Vars = append(cat.Vars, prop("rival", ModelType("Pet")))
	cat.AllVars = append(cat.AllVars, cat.Vars[len(cat.Vars)-1])

	p := newTestProcessor(t, true, nil)
	files := byName(p.ProcessModels(models))
	assert.Equal(t, []string{"Pet"}, files["Cat"].Model.Imports)
}

func TestProcessModels_DoesNotMutateInput(t *testing.T) {
	models := petGraph()
	p := newTestProcessor(t, true, nil)
	_ = p.ProcessModels(models)

	assert.Empty(t, models[0].Imports)
	assert.Equal(t, []string{"Pet", "Person"}, models[2].Imports)
	assert.Empty(t, discriminatorValue(models[2], "petType"))
}

func TestProcessModels_Idempotent(t *testing.T) {
	p := newTestProcessor(t, true, nil)
	first := p.ProcessModels(petGraph())
	second := p.ProcessModels(ModelsOf(first))

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Model.Imports, second[i].Model.Imports, first[i].Model.Name)
		assert.Equal(t, first[i].Imports, second[i].Imports, first[i].Model.Name)
		for j, v := range first[i].Model.AllVars {
			assert.Equal(t, v.DiscriminatorValue, second[i].Model.AllVars[j].DiscriminatorValue)
		}
	}
}

func TestProcessModels_WarnsOnUnmappedVariant(t *testing.T) {
	models := petGraph()
	models[0].Discriminator.MappedModels = models[0].Discriminator.MappedModels[:1]

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	p := newTestProcessor(t, true, logger)
	files := byName(p.ProcessModels(models))

	assert.Empty(t, discriminatorValue(files["Dog"].Model, "petType"))
	assert.Contains(t, buf.String(), "no discriminator value")
	assert.Contains(t, buf.String(), "child=Dog")
	assert.Contains(t, files["Pet"].Model.Imports, "Dog")
}

func TestPropagateDiscriminator(t *testing.T) {
	models := petGraph()
	pet, cat := models[0], models[1]

	assert.True(t, PropagateDiscriminator(pet, cat))
	assert.Equal(t, "cat", discriminatorValue(cat, "petType"))

	// No property named like the discriminator.
	stray := &Model{Name: "Cat", AllVars: []*Property{prop("kind", PrimitiveType("string"))}}
	assert.False(t, PropagateDiscriminator(pet, stray))
	assert.Empty(t, stray.AllVars[0].DiscriminatorValue)

	assert.False(t, PropagateDiscriminator(&Model{Name: "Plain"}, cat))
}
