package classad

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChainIsolation(t *testing.T) {
	parent := NewClassAd()
	parent.AssignString("Cmd", "/bin/sleep")
	parent.AssignInt("JobStatus", 1)

	child := NewClassAd()
	require.NoError(t, child.ChainTo(parent))

	s, ok := child.LookupString("Cmd")
	assert.True(t, ok)
	assert.Equal(t, "/bin/sleep", s)

	child.AssignString("Cmd", "/bin/true")
	s, _ = child.LookupString("Cmd")
	assert.Equal(t, "/bin/true", s)
	s, _ = parent.LookupString("Cmd")
	assert.Equal(t, "/bin/sleep", s)

	assert.True(t, child.Delete("Cmd"))
	s, ok = child.LookupString("Cmd")
	assert.True(t, ok)
	assert.Equal(t, "/bin/sleep", s)

	// deleting an inherited attribute only touches the local map
	assert.False(t, child.Delete("JobStatus"))
	_, ok = parent.LookupLocal("JobStatus")
	assert.True(t, ok)
}

func TestLookup_CaseInsensitive(t *testing.T) {
	ad := NewClassAd()
	ad.AssignInt("ClusterId", 5)
	i, ok := ad.LookupInteger("clusterid")
	assert.True(t, ok)
	assert.Equal(t, int64(5), i)

	ad.AssignInt("CLUSTERID", 6)
	assert.Equal(t, 1, ad.Len())
	assert.Equal(t, []string{"ClusterId"}, ad.Names())
}

func TestLookup_Miss(t *testing.T) {
	ad := NewClassAd()
	_, ok := ad.Lookup("Nothing")
	assert.False(t, ok)
	_, ok = ad.LookupInteger("Nothing")
	assert.False(t, ok)

	ad.AssignString("Name", "x")
	_, ok = ad.LookupInteger("Name")
	assert.False(t, ok)
}

func TestLookupFloat_AcceptsIntegers(t *testing.T) {
	ad := NewClassAd()
	ad.AssignInt("QDate", 100)
	f, ok := ad.LookupFloat("QDate")
	assert.True(t, ok)
	assert.Equal(t, 100.0, f)
}

func TestInsert_InvalidName(t *testing.T) {
	ad := NewClassAd()
	assert.False(t, ad.AssignInt("1bad", 1))
	assert.False(t, ad.Insert("Good", nil))
	assert.Equal(t, 0, ad.Len())
}

func TestAssignExpr_ParseFailureLeavesAdUnchanged(t *testing.T) {
	ad := NewClassAd()
	ad.AssignInt("A", 1)
	err := ad.AssignExpr("A", "1 +")
	assert.True(t, errors.Is(err, ErrParse))
	i, _ := ad.LookupInteger("A")
	assert.Equal(t, int64(1), i)
}

func TestNames_InsertionOrder(t *testing.T) {
	ad := NewClassAd()
	ad.AssignInt("C", 1)
	ad.AssignInt("A", 2)
	ad.AssignInt("B", 3)
	ad.AssignInt("A", 4)
	assert.Equal(t, []string{"C", "A", "B"}, ad.Names())

	ad.Delete("A")
	assert.Equal(t, []string{"C", "B"}, ad.Names())

	var visited []string
	ad.Range(func(name string, _ Expr) bool {
		visited = append(visited, name)
		return false
	})
	assert.Equal(t, []string{"C"}, visited)
}

func TestChainTo_RejectsCycles(t *testing.T) {
	a := NewClassAd()
	b := NewClassAd()
	c := NewClassAd()
	require.NoError(t, b.ChainTo(a))
	require.NoError(t, c.ChainTo(b))

	assert.True(t, errors.Is(a.ChainTo(c), ErrChainCycle))
	assert.True(t, errors.Is(a.ChainTo(a), ErrChainCycle))
	assert.Nil(t, a.Parent())
}

func TestUnchain(t *testing.T) {
	parent := NewClassAd()
	parent.AssignInt("X", 1)
	child := NewClassAd()
	require.NoError(t, child.ChainTo(parent))

	assert.Same(t, parent, child.Unchain())
	assert.Nil(t, child.Parent())
	_, ok := child.Lookup("X")
	assert.False(t, ok)
	_, ok = parent.Lookup("X")
	assert.True(t, ok)
	assert.Nil(t, child.Unchain())
}

func TestGeneration(t *testing.T) {
	parent := NewClassAd()
	child := NewClassAd()
	require.NoError(t, child.ChainTo(parent))

	seen := map[uint64]bool{child.Generation(): true}
	mutations := []func(){
		func() { child.AssignInt("A", 1) },
		func() { parent.AssignInt("B", 1) },
		func() { child.Unchain() },
		func() { child.AssignInt("A", 2) },
		func() { _ = child.ChainTo(parent) },
		func() { parent.Delete("B") },
	}
	for i, mutate := range mutations {
		mutate()
		gen := child.Generation()
		assert.False(t, seen[gen], "mutation %d reused generation %d", i, gen)
		seen[gen] = true
	}

	before := child.Generation()
	child.Lookup("A")
	child.EvaluateAttr("A")
	assert.Equal(t, before, child.Generation())
}

func TestFlattenAndCopy(t *testing.T) {
	parent := NewClassAd()
	parent.AssignInt("ClusterId", 5)
	parent.AssignString("Cmd", "/bin/sleep")
	child := NewClassAd()
	require.NoError(t, child.ChainTo(parent))
	child.AssignInt("ProcId", 0)
	child.AssignString("Cmd", "/bin/true")

	flat := child.Flatten()
	assert.Nil(t, flat.Parent())
	assert.Equal(t, []string{"ClusterId", "Cmd", "ProcId"}, flat.Names())
	s, _ := flat.LookupString("Cmd")
	assert.Equal(t, "/bin/true", s)

	c := child.Copy()
	assert.Same(t, parent, c.Parent())
	c.AssignInt("ProcId", 1)
	i, _ := child.LookupInteger("ProcId")
	assert.Equal(t, int64(0), i)
}
