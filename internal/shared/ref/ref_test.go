package ref

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type venue struct {
	Name string `json:"name"`
}

func TestUnresolved(t *testing.T) {
	id := uuid.New()
	r := Unresolved[venue](id)

	assert.False(t, r.IsResolved())
	assert.Equal(t, id, r.ID())
	_, ok := r.Value()
	assert.False(t, ok)

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `"`+id.String()+`"`, string(data))
}

func TestResolved(t *testing.T) {
	id := uuid.New()
	r := Resolved(id, venue{Name: "Hall A"})

	assert.True(t, r.IsResolved())
	v, ok := r.Value()
	require.True(t, ok)
	assert.Equal(t, "Hall A", v.Name)

	data, err := json.Marshal(struct {
		Venue Ref[venue] `json:"venue"`
	}{Venue: r})
	require.NoError(t, err)
	assert.JSONEq(t, `{"venue":{"name":"Hall A"}}`, string(data))
}

func TestMatch(t *testing.T) {
	id := uuid.New()
	label := func(r Ref[venue]) string {
		return Match(r,
			func(id uuid.UUID) string { return "id:" + id.String() },
			func(v venue) string { return "name:" + v.Name },
		)
	}

	assert.Equal(t, "id:"+id.String(), label(Unresolved[venue](id)))
	assert.Equal(t, "name:Hall A", label(Resolved(id, venue{Name: "Hall A"})))
}
