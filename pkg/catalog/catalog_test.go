package catalog

import (
	"path/filepath"
	"testing"

	"chainspace-intake/internal/common/validation"
	"chainspace-intake/internal/intake/form"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_CoversEveryField(t *testing.T) {
	c := Default()
	require.Len(t, c.Sections, form.SectionCount)

	for _, f := range form.AllFields() {
		spec, ok := c.Field(string(f))
		require.True(t, ok, "missing %s", f)
		assert.NotEmpty(t, spec.Label, "label for %s", f)
		assert.NotEmpty(t, spec.Kind, "kind for %s", f)
		assert.Equal(t, form.IsConditional(f), spec.ShowWhen != "", "showWhen for %s", f)
	}

	assert.Equal(t, "Final Screening", c.Sections[7].Title)
	assert.Empty(t, filterRequired(c.Sections[8].Fields))
}

func filterRequired(fields []FieldSpec) []FieldSpec {
	var out []FieldSpec
	for _, f := range fields {
		if f.Required {
			out = append(out, f)
		}
	}
	return out
}

func TestHasOption(t *testing.T) {
	c := Default()
	assert.True(t, c.HasOption("distanceFromUyo", "will-relocate"))
	assert.True(t, c.HasOption("learningStyle", "mix"))
	assert.False(t, c.HasOption("learningStyle", "osmosis"))
	assert.False(t, c.HasOption("nope", "yes"))
}

func TestDraftSchema_AcceptsEncodedDraft(t *testing.T) {
	c := Default()
	d := form.NewDraft()
	d.FullName = "Ada"
	d.LearningStyle = []string{"group"}
	d.InformationAccuracy = true

	data, err := form.Encode(d)
	require.NoError(t, err)

	result, err := validation.ValidateDocument(data, c.DraftSchema())
	require.NoError(t, err)
	assert.True(t, result.Valid, "errors: %v", result.GetErrorMessages())

	result, err = validation.ValidateDocument([]byte(`{"informationAccuracy":"true"}`), c.DraftSchema())
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.True(t, result.HasErrors("informationAccuracy"))
}

func TestWriteAndLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, Default().WriteFile(path))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, Version, loaded.Version)
	assert.Len(t, loaded.Sections, form.SectionCount)
}
