package hydrate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphom/graphom/metadata"
)

type Person struct {
	ID     *int64   `graph:"id"`
	Name   string   `graph:"name"`
	Age    int      `graph:"age"`
	Score  float64  `graph:"score"`
	Active bool     `graph:"active"`
	Tags   []string `graph:"tags"`
	Joined time.Time `graph:"joined"`
}

func personMeta(t *testing.T) *metadata.Metadata {
	t.Helper()
	md, err := metadata.NewRegistry().Register(&Person{})
	require.NoError(t, err)
	return md
}

func TestPopulate(t *testing.T) {
	md := personMeta(t)

	t.Run("fills mapped fields with coercion", func(t *testing.T) {
		joined := time.Date(2020, 6, 1, 12, 0, 0, 0, time.UTC)
		p := &Person{}
		err := NewMapper().Populate(md, p, map[string]interface{}{
			"name":   "Alice",
			"age":    int64(30),
			"score":  int64(7),
			"active": true,
			"tags":   []interface{}{"admin", "ops"},
			"joined": joined,
		})
		require.NoError(t, err)

		assert.Equal(t, "Alice", p.Name)
		assert.Equal(t, 30, p.Age)
		assert.Equal(t, 7.0, p.Score)
		assert.True(t, p.Active)
		assert.Equal(t, []string{"admin", "ops"}, p.Tags)
		assert.Equal(t, joined, p.Joined)
		assert.Nil(t, p.ID, "hydration never touches the identity field")
	})

	t.Run("absent properties leave fields untouched", func(t *testing.T) {
		p := &Person{Name: "existing", Age: 99}
		err := NewMapper().Populate(md, p, map[string]interface{}{"name": "Alice"})
		require.NoError(t, err)
		assert.Equal(t, "Alice", p.Name)
		assert.Equal(t, 99, p.Age)
	})

	t.Run("nil property values are skipped", func(t *testing.T) {
		p := &Person{Name: "existing"}
		err := NewMapper().Populate(md, p, map[string]interface{}{"name": nil})
		require.NoError(t, err)
		assert.Equal(t, "existing", p.Name)
	})

	t.Run("uncoercible value is an error, never swallowed", func(t *testing.T) {
		err := NewMapper().Populate(md, &Person{}, map[string]interface{}{"age": "thirty"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "age")
	})

	t.Run("rejects non-pointer entity", func(t *testing.T) {
		err := NewMapper().Populate(md, Person{}, map[string]interface{}{})
		assert.Error(t, err)
	})

	t.Run("re-populating overwrites in place", func(t *testing.T) {
		p := &Person{Name: "Before", Age: 1}
		err := NewMapper().Populate(md, p, map[string]interface{}{
			"name": "After",
			"age":  int64(2),
		})
		require.NoError(t, err)
		assert.Equal(t, "After", p.Name)
		assert.Equal(t, 2, p.Age)
	})
}

func TestDehydrate(t *testing.T) {
	md := personMeta(t)

	t.Run("extracts mapped properties, identity excluded", func(t *testing.T) {
		id := int64(42)
		p := &Person{ID: &id, Name: "Alice", Age: 30, Active: true}
		bag, err := NewMapper().Dehydrate(md, p)
		require.NoError(t, err)

		assert.Equal(t, "Alice", bag["name"])
		assert.Equal(t, 30, bag["age"])
		assert.Equal(t, true, bag["active"])
		assert.NotContains(t, bag, "id")
	})

	t.Run("rejects wrong entity type", func(t *testing.T) {
		type Other struct{}
		_, err := NewMapper().Dehydrate(md, &Other{})
		assert.Error(t, err)
	})
}

func TestRoundTrip(t *testing.T) {
	// Hydrating a bag and dehydrating the result must preserve the values a
	// read produced, so a subsequent update writes back what was fetched.
	md := personMeta(t)
	mapper := NewMapper()

	p := &Person{}
	require.NoError(t, mapper.Populate(md, p, map[string]interface{}{
		"name": "Alice",
		"age":  int64(30),
	}))

	bag, err := mapper.Dehydrate(md, p)
	require.NoError(t, err)
	assert.Equal(t, "Alice", bag["name"])
	assert.Equal(t, 30, bag["age"])
}
