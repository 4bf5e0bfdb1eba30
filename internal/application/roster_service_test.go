package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitClassNames(t *testing.T) {
	tests := []struct {
		name string
		list string
		want []string
	}{
		{name: "ascii commas", list: "A,B", want: []string{"A", "B"}},
		{name: "full width comma", list: "A，B", want: []string{"A", "B"}},
		{name: "ideographic comma", list: "A、B", want: []string{"A", "B"}},
		{name: "mixed with blanks", list: " A , ,B、 C ", want: []string{"A", "B", "C"}},
		{name: "empty", list: "  ", want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitClassNames(tt.list))
		})
	}
}

func TestRosterService_ResolveTotalHeadcount(t *testing.T) {
	ctx := context.Background()
	svc := NewRosterService(newMemoryRosters(
		ClassRoster{Name: "A", Headcount: 10},
		ClassRoster{Name: "B", Headcount: 15},
	))

	t.Run("sums every delimiter form", func(t *testing.T) {
		for _, list := range []string{"A,B", "A，B", "A、B"} {
			total, err := svc.ResolveTotalHeadcount(ctx, list)
			require.NoError(t, err, list)
			assert.Equal(t, 25, total, list)
		}
	})

	t.Run("repeated names count once", func(t *testing.T) {
		total, err := svc.ResolveTotalHeadcount(ctx, "A,A,B")
		require.NoError(t, err)
		assert.Equal(t, 25, total)
	})

	t.Run("empty list is zero", func(t *testing.T) {
		total, err := svc.ResolveTotalHeadcount(ctx, " , ")
		require.NoError(t, err)
		assert.Zero(t, total)
	})

	t.Run("reports every unknown name", func(t *testing.T) {
		total, err := svc.ResolveTotalHeadcount(ctx, "A,UNKNOWN1,UNKNOWN2")
		assert.Zero(t, total)

		var refErr *UnresolvedReferenceError
		require.ErrorAs(t, err, &refErr)
		assert.Equal(t, ReferenceClass, refErr.Kind)
		assert.Equal(t, []string{"UNKNOWN1", "UNKNOWN2"}, refErr.Names)
		assert.Equal(t, "unresolved_reference", ErrorKind(err))
	})
}

func TestRosterService_CRUD(t *testing.T) {
	ctx := context.Background()
	svc := NewRosterService(newMemoryRosters())

	a, err := svc.Create(ctx, RosterInput{Name: " A ", Headcount: 30, Major: strPtr("Networks")})
	require.NoError(t, err)
	assert.Equal(t, "A", a.Name)
	require.NotNil(t, a.Major)

	b, err := svc.Create(ctx, RosterInput{Name: "B", Headcount: 20})
	require.NoError(t, err)

	_, err = svc.Create(ctx, RosterInput{Name: "A", Headcount: 5})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	_, err = svc.Update(ctx, b.ID, RosterInput{Name: "A", Headcount: 20})
	assert.ErrorIs(t, err, ErrAlreadyExists, "rename into a taken name")

	updated, err := svc.Update(ctx, b.ID, RosterInput{Name: "B2", Headcount: 21})
	require.NoError(t, err)
	assert.Equal(t, 21, updated.Headcount)

	found, ok, err := svc.FindByName(ctx, "B2")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, b.ID, found.ID)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, svc.Delete(ctx, a.ID))
	assert.ErrorIs(t, svc.Delete(ctx, a.ID), ErrNotFound)

	_, ok, err = svc.FindByName(ctx, "A")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRosterService_Validation(t *testing.T) {
	svc := NewRosterService(newMemoryRosters())

	_, err := svc.Create(context.Background(), RosterInput{Name: "A,B", Headcount: 0})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.FieldErrors, "name")
	assert.Contains(t, vErr.FieldErrors, "headcount")
}
