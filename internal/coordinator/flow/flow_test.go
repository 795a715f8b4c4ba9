package flow

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func twoStep() Definition {
	return Definition{
		Key: "twoStep",
		Steps: []Step{
			{Name: "draft", CandidateVar: "userName"},
			{Name: "review", CandidateGroup: "manager", OnReject: "draft"},
		},
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	t.Run("accepts well-formed definition", func(t *testing.T) {
		require.NoError(t, twoStep().Validate())
	})

	t.Run("rejects empty key", func(t *testing.T) {
		d := twoStep()
		d.Key = ""
		require.Error(t, d.Validate())
	})

	t.Run("rejects no steps", func(t *testing.T) {
		require.Error(t, Definition{Key: "empty"}.Validate())
	})

	t.Run("rejects duplicate step names", func(t *testing.T) {
		d := Definition{Key: "dup", Steps: []Step{{Name: "a"}, {Name: "a"}}}
		require.Error(t, d.Validate())
	})

	t.Run("rejects dangling reject target", func(t *testing.T) {
		d := Definition{Key: "bad", Steps: []Step{{Name: "a", OnReject: "missing"}}}
		require.Error(t, d.Validate())
	})
}

func TestStepNavigation(t *testing.T) {
	t.Parallel()

	d := twoStep()
	require.Equal(t, "draft", d.First().Name)

	next, ok := d.After("draft")
	require.True(t, ok)
	require.Equal(t, "review", next.Name)

	_, ok = d.After("review")
	require.False(t, ok)
}

func TestCandidateUserFor(t *testing.T) {
	t.Parallel()

	vars := map[string]string{"userName": "xzg"}

	byVar := Step{CandidateVar: "userName"}
	require.Equal(t, "xzg", byVar.CandidateUserFor(vars))

	literal := Step{CandidateUser: "zhangsan"}
	require.Equal(t, "zhangsan", literal.CandidateUserFor(vars))

	// Variable reference wins when both are set.
	both := Step{CandidateVar: "userName", CandidateUser: "zhangsan"}
	require.Equal(t, "xzg", both.CandidateUserFor(vars))
}

func TestDefaultDecision(t *testing.T) {
	t.Parallel()

	d := twoStep()

	t.Run("approval advances", func(t *testing.T) {
		next, ok := DefaultDecision(d, d.Steps[0], true)
		require.True(t, ok)
		require.Equal(t, "review", next.Name)
	})

	t.Run("approval of last step completes", func(t *testing.T) {
		_, ok := DefaultDecision(d, d.Steps[1], true)
		require.False(t, ok)
	})

	t.Run("rejection reopens target", func(t *testing.T) {
		next, ok := DefaultDecision(d, d.Steps[1], false)
		require.True(t, ok)
		require.Equal(t, "draft", next.Name)
	})

	t.Run("rejection without target terminates", func(t *testing.T) {
		_, ok := DefaultDecision(d, d.Steps[0], false)
		require.False(t, ok)
	})
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.NoError(t, r.Register(twoStep()))

	got, err := r.Lookup("twoStep")
	require.NoError(t, err)
	require.Equal(t, "twoStep", got.Key)

	require.Error(t, r.Register(twoStep()), "duplicate keys rejected")

	_, err = r.Lookup("missing")
	require.ErrorIs(t, err, ErrUnknownDefinition)
}

func TestBuiltinDefinitionsAreValid(t *testing.T) {
	t.Parallel()

	for _, def := range Builtin() {
		require.NoError(t, def.Validate(), def.Key)
	}
}
