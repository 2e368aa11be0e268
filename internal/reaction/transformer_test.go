package reaction

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"

	"github.com/phrazzld/chemlab/internal/domain"
	"github.com/phrazzld/chemlab/internal/events"
	"github.com/phrazzld/chemlab/internal/generation"
	"github.com/phrazzld/chemlab/internal/mocks"
	"github.com/phrazzld/chemlab/internal/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTransformer(t *testing.T, synth Synthesizer) (*Transformer, *stats.Aggregator) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	emitter := events.NewInMemoryEventEmitter(logger)
	agg := stats.NewAggregator(nil)
	emitter.RegisterHandler(agg)
	return NewTransformer(synth, emitter, logger), agg
}

func TestApply_Success(t *testing.T) {
	t.Parallel()

	gen := mocks.NewMockGenerator()
	gen.Structure = mocks.SampleEthene()
	tr, agg := newTestTransformer(t, gen)

	current := mocks.SampleEthanol()
	cond := domain.ConditionSet{Temp: 170, Pressure: 1, Catalyst: "H2SO4"}

	product, err := tr.Apply(context.Background(), current, " conc. H2SO4 ", cond, nil)
	require.NoError(t, err)
	assert.Equal(t, "Ethene", product.Name)
	assert.Equal(t, []string{"conc. H2SO4"}, gen.Reagents)
	assert.Equal(t, 1, agg.Snapshot().ReactionsMastered)
	assert.True(t, reflect.DeepEqual(current, mocks.SampleEthanol()), "reactant untouched")
}

func TestApply_SynthesizerMutationDoesNotReachCaller(t *testing.T) {
	t.Parallel()

	gen := &mocks.MockGenerator{
		ApplyReactionFn: func(ctx context.Context, s domain.Structure, reagent string, c domain.ConditionSet) (domain.Structure, error) {
			s.Atoms[0].Element = "Si"
			s.Name = "Silanol"
			return s, nil
		},
	}
	tr, _ := newTestTransformer(t, gen)

	current := mocks.SampleEthanol()
	_, err := tr.Apply(context.Background(), current, "SiH4", domain.DefaultConditions(), nil)
	require.NoError(t, err)
	assert.Equal(t, "C", current.Atoms[0].Element)
}

func TestApply_Failures(t *testing.T) {
	t.Parallel()

	malformed := mocks.SampleEthene()
	malformed.Bonds = append(malformed.Bonds, domain.Bond{Source: "c2", Target: "c1", Order: domain.BondSingle})

	tests := []struct {
		name       string
		gen        *mocks.MockGenerator
		reagent    string
		conditions domain.ConditionSet
		target     error
		calls      int
	}{
		{
			name:       "oracle unavailable",
			gen:        mocks.NewMockGeneratorWithError(generation.ErrOracleUnavailable),
			reagent:    "HBr",
			conditions: domain.DefaultConditions(),
			target:     generation.ErrOracleUnavailable,
			calls:      1,
		},
		{
			name:       "malformed product",
			gen:        &mocks.MockGenerator{Structure: malformed},
			reagent:    "HBr",
			conditions: domain.DefaultConditions(),
			target:     domain.ErrMalformedStructure,
			calls:      1,
		},
		{
			name:       "empty reagent",
			gen:        mocks.NewMockGenerator(),
			reagent:    "  ",
			conditions: domain.DefaultConditions(),
			target:     domain.ErrValidation,
		},
		{
			name:       "zero pressure",
			gen:        mocks.NewMockGenerator(),
			reagent:    "HBr",
			conditions: domain.ConditionSet{Temp: 25, Pressure: 0},
			target:     domain.ErrInvalidConditions,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			tr, agg := newTestTransformer(t, tc.gen)

			product, err := tr.Apply(context.Background(), mocks.SampleEthanol(), tc.reagent, tc.conditions, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrReactionFailed)
			assert.ErrorIs(t, err, tc.target)
			assert.Empty(t, product.Atoms)
			assert.Equal(t, 0, agg.Snapshot().ReactionsMastered)
			assert.Equal(t, tc.calls, tc.gen.Calls("ApplyReaction"))
		})
	}
}

func TestApply_Commit(t *testing.T) {
	t.Parallel()

	superseded := errors.New("superseded")

	tests := []struct {
		name      string
		commitErr error
		reactions int
	}{
		{name: "committed product counts", reactions: 1},
		{name: "rejected commit does not count", commitErr: superseded},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			gen := mocks.NewMockGenerator()
			gen.Structure = mocks.SampleEthene()
			tr, agg := newTestTransformer(t, gen)

			var committed []domain.Structure
			commit := func(product domain.Structure) error {
				committed = append(committed, product)
				return tc.commitErr
			}

			product, err := tr.Apply(context.Background(), mocks.SampleEthanol(), "H2SO4", domain.DefaultConditions(), commit)
			if tc.commitErr != nil {
				assert.ErrorIs(t, err, tc.commitErr)
				assert.NotErrorIs(t, err, ErrReactionFailed)
				assert.Empty(t, product.Atoms)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "Ethene", product.Name)
			}
			require.Len(t, committed, 1)
			assert.Equal(t, mocks.SampleEthene(), committed[0])
			assert.Equal(t, tc.reactions, agg.Snapshot().ReactionsMastered)
		})
	}
}

func TestApply_FailureSkipsCommit(t *testing.T) {
	t.Parallel()

	tr, _ := newTestTransformer(t, mocks.NewMockGeneratorWithError(generation.ErrOracleUnavailable))

	called := false
	_, err := tr.Apply(context.Background(), mocks.SampleEthanol(), "HBr", domain.DefaultConditions(),
		func(domain.Structure) error {
			called = true
			return nil
		})
	assert.ErrorIs(t, err, ErrReactionFailed)
	assert.False(t, called)
}

func TestApply_MalformedReactant(t *testing.T) {
	t.Parallel()

	gen := mocks.NewMockGenerator()
	tr, _ := newTestTransformer(t, gen)

	bad := mocks.SampleEthanol()
	bad.Bonds[0].Order = 5

	_, err := tr.Apply(context.Background(), bad, "HBr", domain.DefaultConditions(), nil)
	assert.ErrorIs(t, err, ErrReactionFailed)
	assert.ErrorIs(t, err, domain.ErrMalformedStructure)
	assert.Equal(t, 0, gen.Calls("ApplyReaction"))
}

func TestApply_ConcurrentRejected(t *testing.T) {
	t.Parallel()

	entered := make(chan struct{})
	release := make(chan struct{})
	gen := &mocks.MockGenerator{
		ApplyReactionFn: func(ctx context.Context, s domain.Structure, reagent string, c domain.ConditionSet) (domain.Structure, error) {
			close(entered)
			<-release
			return mocks.SampleEthene(), nil
		},
	}
	tr, _ := newTestTransformer(t, gen)

	done := make(chan error, 1)
	go func() {
		_, err := tr.Apply(context.Background(), mocks.SampleEthanol(), "H2SO4", domain.DefaultConditions(), nil)
		done <- err
	}()
	<-entered

	_, err := tr.Apply(context.Background(), mocks.SampleEthanol(), "HBr", domain.DefaultConditions(), nil)
	assert.ErrorIs(t, err, ErrReactionInProgress)

	close(release)
	require.NoError(t, <-done)

	// the guard is released afterwards
	gen.ApplyReactionFn = nil
	gen.Structure = mocks.SampleEthene()
	_, err = tr.Apply(context.Background(), mocks.SampleEthanol(), "HBr", domain.DefaultConditions(), nil)
	assert.NoError(t, err)
}
