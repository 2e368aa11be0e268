package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/phrazzld/chemlab/internal/archive"
	"github.com/phrazzld/chemlab/internal/curriculum"
	"github.com/phrazzld/chemlab/internal/domain"
	"github.com/phrazzld/chemlab/internal/generation"
	"github.com/phrazzld/chemlab/internal/mocks"
	"github.com/phrazzld/chemlab/internal/quiz"
	"github.com/phrazzld/chemlab/internal/reaction"
	"github.com/phrazzld/chemlab/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLab(t *testing.T, gen *mocks.MockGenerator) *service.Lab {
	t.Helper()

	catalog, err := curriculum.DefaultCatalog()
	require.NoError(t, err)

	lab, err := service.NewLab(service.Deps{
		Generator: gen,
		Catalog:   catalog,
		Syllabus:  "UNDERGRAD",
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Clock: func() time.Time {
			return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		},
	})
	require.NoError(t, err)
	return lab
}

// blockingStructure returns a GenerateStructureFn that signals entered and
// waits for release before returning s.
func blockingStructure(s domain.Structure, entered, release chan struct{}) func(context.Context, string) (domain.Structure, error) {
	return func(ctx context.Context, name string) (domain.Structure, error) {
		close(entered)
		<-release
		return s, nil
	}
}

func TestNewLab_Validation(t *testing.T) {
	t.Parallel()

	catalog, err := curriculum.DefaultCatalog()
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name string
		deps service.Deps
	}{
		{"missing generator", service.Deps{Catalog: catalog, Syllabus: "UNDERGRAD", Logger: logger}},
		{"missing catalog", service.Deps{Generator: mocks.NewMockGenerator(), Syllabus: "UNDERGRAD", Logger: logger}},
		{"missing logger", service.Deps{Generator: mocks.NewMockGenerator(), Catalog: catalog, Syllabus: "UNDERGRAD"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.NewLab(tc.deps)
			assert.Error(t, err)
		})
	}

	_, err = service.NewLab(service.Deps{
		Generator: mocks.NewMockGenerator(),
		Catalog:   catalog,
		Syllabus:  "GCSE",
		Logger:    logger,
	})
	assert.ErrorIs(t, err, curriculum.ErrUnknownSyllabus)
}

func TestLab_SearchMolecule(t *testing.T) {
	t.Parallel()

	gen := mocks.NewMockGenerator()
	lab := newTestLab(t, gen)
	ctx := context.Background()

	_, err := lab.CurrentStructure()
	assert.ErrorIs(t, err, service.ErrNoStructure)

	_, err = lab.SearchMolecule(ctx, "   ")
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Zero(t, gen.Calls("GenerateStructure"))

	got, err := lab.SearchMolecule(ctx, "ethanol")
	require.NoError(t, err)
	assert.Equal(t, mocks.SampleEthanol(), got)

	current, err := lab.CurrentStructure()
	require.NoError(t, err)
	assert.Equal(t, mocks.SampleEthanol(), current)
	assert.Equal(t, 1, lab.Stats().MoleculesGenerated)

	gen.Err = generation.ErrOracleUnavailable
	_, err = lab.SearchMolecule(ctx, "benzene")
	assert.ErrorIs(t, err, generation.ErrOracleUnavailable)

	current, err = lab.CurrentStructure()
	require.NoError(t, err)
	assert.Equal(t, mocks.SampleEthanol(), current, "failed search keeps the displayed structure")
	assert.Equal(t, 1, lab.Stats().MoleculesGenerated)
}

func TestLab_SearchRejectsConcurrentRequest(t *testing.T) {
	t.Parallel()

	entered := make(chan struct{})
	release := make(chan struct{})
	gen := mocks.NewMockGenerator()
	gen.GenerateStructureFn = blockingStructure(mocks.SampleEthanol(), entered, release)
	lab := newTestLab(t, gen)

	done := make(chan error, 1)
	go func() {
		_, err := lab.SearchMolecule(context.Background(), "ethanol")
		done <- err
	}()
	<-entered

	_, err := lab.SearchMolecule(context.Background(), "ethene")
	assert.ErrorIs(t, err, service.ErrOperationInProgress)
	_, err = lab.ApplyReaction(context.Background(), "H2SO4", domain.DefaultConditions())
	assert.ErrorIs(t, err, service.ErrNoStructure)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, gen.Calls("GenerateStructure"))
}

func TestLab_LoadArchivedDiscardsInFlightSearch(t *testing.T) {
	t.Parallel()

	gen := mocks.NewMockGenerator()
	gen.Structure = mocks.SampleEthene()
	lab := newTestLab(t, gen)
	ctx := context.Background()

	_, err := lab.SearchMolecule(ctx, "ethene")
	require.NoError(t, err)
	item, err := lab.SaveCurrent(ctx)
	require.NoError(t, err)

	entered := make(chan struct{})
	release := make(chan struct{})
	gen.GenerateStructureFn = blockingStructure(mocks.SampleEthanol(), entered, release)

	done := make(chan error, 1)
	go func() {
		_, err := lab.SearchMolecule(ctx, "ethanol")
		done <- err
	}()
	<-entered

	loaded, err := lab.LoadArchived(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, mocks.SampleEthene(), loaded)

	close(release)
	assert.ErrorIs(t, <-done, service.ErrStaleResponse)

	current, err := lab.CurrentStructure()
	require.NoError(t, err)
	assert.Equal(t, "Ethene", current.Name)
	assert.Equal(t, 1, lab.Stats().MoleculesGenerated, "discarded results are not counted")
}

func TestLab_RejectsMalformedOracleStructure(t *testing.T) {
	t.Parallel()

	malformed := domain.Structure{
		Name: "Broken",
		Atoms: []domain.Atom{
			{ID: "a1", Element: "C"},
			{ID: "a1", Element: "O"},
		},
		Bonds: []domain.Bond{{Source: "a1", Target: "a1", Order: 7}},
	}

	tests := []struct {
		name string
		call func(ctx context.Context, lab *service.Lab, gen *mocks.MockGenerator) error
	}{
		{
			name: "search",
			call: func(ctx context.Context, lab *service.Lab, gen *mocks.MockGenerator) error {
				gen.Structure = malformed
				_, err := lab.SearchMolecule(ctx, "broken")
				return err
			},
		},
		{
			name: "analyze",
			call: func(ctx context.Context, lab *service.Lab, gen *mocks.MockGenerator) error {
				gen.AnalyzeStructureFn = func(context.Context, domain.Structure) (domain.Structure, error) {
					return malformed, nil
				}
				_, err := lab.AnalyzeStructure(ctx, mocks.SampleEthene())
				return err
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			gen := mocks.NewMockGenerator()
			lab := newTestLab(t, gen)
			ctx := context.Background()

			_, err := lab.SearchMolecule(ctx, "ethanol")
			require.NoError(t, err)

			err = tc.call(ctx, lab, gen)
			require.Error(t, err)
			assert.ErrorIs(t, err, generation.ErrInvalidResponse)
			var bad *domain.MalformedStructureError
			require.ErrorAs(t, err, &bad)
			assert.Equal(t, domain.ReasonDuplicateAtomID, bad.Reason)

			current, err := lab.CurrentStructure()
			require.NoError(t, err)
			assert.Equal(t, mocks.SampleEthanol(), current)
			assert.NoError(t, current.Validate())
			assert.Equal(t, 1, lab.Stats().MoleculesGenerated)

			// the guard is released
			gen.Structure = mocks.SampleEthene()
			gen.AnalyzeStructureFn = nil
			_, err = lab.SearchMolecule(ctx, "ethene")
			assert.NoError(t, err)
		})
	}
}

func TestLab_ApplyReaction(t *testing.T) {
	t.Parallel()

	gen := mocks.NewMockGenerator()
	lab := newTestLab(t, gen)
	ctx := context.Background()

	_, err := lab.ApplyReaction(ctx, "H2SO4", domain.DefaultConditions())
	assert.ErrorIs(t, err, service.ErrNoStructure)

	_, err = lab.SearchMolecule(ctx, "ethanol")
	require.NoError(t, err)

	gen.Structure = mocks.SampleEthene()
	product, err := lab.ApplyReaction(ctx, "H2SO4", domain.ConditionSet{Temp: 170, Pressure: 1, Catalyst: "H2SO4"})
	require.NoError(t, err)
	assert.Equal(t, "Ethene", product.Name)
	assert.Equal(t, []string{"H2SO4"}, gen.Reagents)
	assert.Equal(t, 1, lab.Stats().ReactionsMastered)

	current, err := lab.CurrentStructure()
	require.NoError(t, err)
	assert.Equal(t, mocks.SampleEthene(), current)
}

func TestLab_ApplyReactionFailureKeepsStructure(t *testing.T) {
	t.Parallel()

	malformed := mocks.SampleEthene()
	malformed.Bonds = append(malformed.Bonds, domain.Bond{Source: "c2", Target: "c1", Order: domain.BondSingle})

	tests := []struct {
		name       string
		reagent    string
		conditions domain.ConditionSet
		product    domain.Structure
		oracleErr  error
		target     error
	}{
		{
			name:       "malformed product",
			reagent:    "H2SO4",
			conditions: domain.DefaultConditions(),
			product:    malformed,
			target:     domain.ErrMalformedStructure,
		},
		{
			name:       "oracle unavailable",
			reagent:    "H2SO4",
			conditions: domain.DefaultConditions(),
			oracleErr:  generation.ErrOracleUnavailable,
			target:     generation.ErrOracleUnavailable,
		},
		{
			name:       "zero pressure",
			reagent:    "H2SO4",
			conditions: domain.ConditionSet{Temp: 25},
			target:     domain.ErrInvalidConditions,
		},
		{
			name:       "blank reagent",
			reagent:    " ",
			conditions: domain.DefaultConditions(),
			target:     domain.ErrValidation,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			gen := mocks.NewMockGenerator()
			lab := newTestLab(t, gen)
			ctx := context.Background()

			before, err := lab.SearchMolecule(ctx, "ethanol")
			require.NoError(t, err)

			gen.ApplyReactionFn = func(context.Context, domain.Structure, string, domain.ConditionSet) (domain.Structure, error) {
				return tc.product, tc.oracleErr
			}

			_, err = lab.ApplyReaction(ctx, tc.reagent, tc.conditions)
			require.Error(t, err)
			assert.ErrorIs(t, err, reaction.ErrReactionFailed)
			assert.ErrorIs(t, err, tc.target)

			after, err := lab.CurrentStructure()
			require.NoError(t, err)
			assert.Equal(t, before, after)
			assert.Zero(t, lab.Stats().ReactionsMastered)
		})
	}
}

func TestLab_LoadArchivedDiscardsInFlightReaction(t *testing.T) {
	t.Parallel()

	gen := mocks.NewMockGenerator()
	lab := newTestLab(t, gen)
	ctx := context.Background()

	_, err := lab.SearchMolecule(ctx, "ethanol")
	require.NoError(t, err)
	item, err := lab.SaveCurrent(ctx)
	require.NoError(t, err)

	entered := make(chan struct{})
	release := make(chan struct{})
	gen.ApplyReactionFn = func(context.Context, domain.Structure, string, domain.ConditionSet) (domain.Structure, error) {
		close(entered)
		<-release
		return mocks.SampleEthene(), nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := lab.ApplyReaction(ctx, "H2SO4", domain.DefaultConditions())
		done <- err
	}()
	<-entered

	_, err = lab.LoadArchived(ctx, item.ID)
	require.NoError(t, err)

	close(release)
	assert.ErrorIs(t, <-done, service.ErrStaleResponse)

	current, err := lab.CurrentStructure()
	require.NoError(t, err)
	assert.Equal(t, mocks.SampleEthanol(), current)
	assert.Zero(t, lab.Stats().ReactionsMastered, "discarded products are not counted")

	// the molecule family is free again
	gen.ApplyReactionFn = nil
	gen.Structure = mocks.SampleEthene()
	_, err = lab.ApplyReaction(ctx, "H2SO4", domain.DefaultConditions())
	require.NoError(t, err)
	assert.Equal(t, 1, lab.Stats().ReactionsMastered)
}

func TestLab_AnalyzeStructure(t *testing.T) {
	t.Parallel()

	gen := mocks.NewMockGenerator()
	lab := newTestLab(t, gen)
	ctx := context.Background()

	edited := mocks.SampleEthanol()
	edited.Bonds = append(edited.Bonds, domain.Bond{Source: "c1", Target: "c1", Order: domain.BondSingle})

	_, err := lab.AnalyzeStructure(ctx, edited)
	var malformed *domain.MalformedStructureError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, domain.ReasonSelfLoop, malformed.Reason)
	assert.Zero(t, gen.Calls("AnalyzeStructure"))

	analyzed, err := lab.AnalyzeStructure(ctx, mocks.SampleEthanol())
	require.NoError(t, err)
	assert.Equal(t, mocks.SampleEthanol(), analyzed)
	assert.Zero(t, lab.Stats().MoleculesGenerated, "analysis is not a search")
}

func TestLab_Archive(t *testing.T) {
	t.Parallel()

	lab := newTestLab(t, mocks.NewMockGenerator())
	ctx := context.Background()

	_, err := lab.SaveCurrent(ctx)
	assert.ErrorIs(t, err, service.ErrNoStructure)

	_, err = lab.SearchMolecule(ctx, "ethanol")
	require.NoError(t, err)
	first, err := lab.SaveCurrent(ctx)
	require.NoError(t, err)
	second, err := lab.SaveCurrent(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	items := lab.ListArchive()
	require.Len(t, items, 2)
	assert.Equal(t, second.ID, items[0].ID)
	assert.Equal(t, mocks.SampleEthanol(), items[0].Data)

	lab.RemoveArchived(first.ID)
	lab.RemoveArchived(first.ID)
	assert.Len(t, lab.ListArchive(), 1)

	_, err = lab.LoadArchived(ctx, first.ID)
	assert.ErrorIs(t, err, archive.ErrItemNotFound)
	assert.Equal(t, 1, lab.Overview().ArchiveCount)
}

// passQuiz answers every question of the sample quiz correctly.
func passQuiz(t *testing.T, lab *service.Lab) quiz.Snapshot {
	t.Helper()
	ctx := context.Background()

	_, err := lab.AnswerQuizOption(1)
	require.NoError(t, err)
	_, err = lab.NextQuestion(ctx)
	require.NoError(t, err)
	_, err = lab.AnswerQuizText(" ethanol ")
	require.NoError(t, err)
	_, err = lab.NextQuestion(ctx)
	require.NoError(t, err)
	_, err = lab.AnswerQuizText("backside attack")
	require.NoError(t, err)
	snap, err := lab.NextQuestion(ctx)
	require.NoError(t, err)
	return snap
}

func TestLab_QuizUnlocksNextModule(t *testing.T) {
	t.Parallel()

	gen := mocks.NewMockGenerator()
	var topics []string
	gen.GenerateQuizFn = func(ctx context.Context, topic string) (domain.Quiz, error) {
		topics = append(topics, topic)
		return mocks.SampleQuiz(topic), nil
	}
	lab := newTestLab(t, gen)
	ctx := context.Background()

	_, err := lab.QuizSnapshot()
	assert.ErrorIs(t, err, service.ErrNoQuiz)
	_, err = lab.AnswerQuizOption(0)
	assert.ErrorIs(t, err, service.ErrNoQuiz)

	snap, err := lab.StartQuiz(ctx, "", "u1")
	require.NoError(t, err)
	assert.Equal(t, "Chemical Bonding", snap.Topic)
	assert.Equal(t, "u1", snap.ModuleID)
	assert.Equal(t, []string{"Chemical Bonding"}, topics)

	snap = passQuiz(t, lab)
	assert.Equal(t, quiz.StateCompleted, snap.State)
	assert.Equal(t, 100, snap.Result.Percentage)

	modules := lab.Modules()
	assert.Equal(t, domain.ModuleCompleted, modules[0].Status)
	require.NotNil(t, modules[0].Score)
	assert.Equal(t, 100, *modules[0].Score)
	assert.Equal(t, domain.ModuleActive, modules[1].Status)
	assert.Equal(t, domain.ModuleLocked, modules[2].Status)

	overview := lab.Overview()
	assert.Equal(t, 1, overview.Stats.QuizzesTaken)
	assert.Equal(t, 100, overview.Stats.TotalScore)
	assert.Equal(t, 100, overview.AverageScore)
	assert.Equal(t, "UNDERGRAD", overview.Syllabus)
	assert.Equal(t, lab.CompletionPercent(), overview.CompletionPercent)
	assert.Positive(t, overview.CompletionPercent)
}

func TestLab_StartQuizRejections(t *testing.T) {
	t.Parallel()

	gen := mocks.NewMockGenerator()
	lab := newTestLab(t, gen)
	ctx := context.Background()

	_, err := lab.StartQuiz(ctx, "", "u2")
	assert.ErrorIs(t, err, service.ErrModuleLocked)
	_, err = lab.StartQuiz(ctx, "", "a1")
	assert.ErrorIs(t, err, service.ErrModuleNotFound)
	_, err = lab.StartQuiz(ctx, "  ", "")
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Zero(t, gen.Calls("GenerateQuiz"))
}

func TestLab_FailedStartKeepsPreviousQuiz(t *testing.T) {
	t.Parallel()

	gen := mocks.NewMockGenerator()
	lab := newTestLab(t, gen)
	ctx := context.Background()

	first, err := lab.StartQuiz(ctx, "Alcohols", "")
	require.NoError(t, err)
	_, err = lab.AnswerQuizOption(1)
	require.NoError(t, err)

	gen.GenerateQuizFn = func(context.Context, string) (domain.Quiz, error) {
		return domain.Quiz{}, generation.ErrOracleUnavailable
	}
	_, err = lab.StartQuiz(ctx, "Alkenes", "")
	assert.ErrorIs(t, err, quiz.ErrQuizGenerationFailed)
	assert.ErrorIs(t, err, generation.ErrOracleUnavailable)

	snap, err := lab.QuizSnapshot()
	require.NoError(t, err)
	assert.Equal(t, first.ID, snap.ID)
	assert.Equal(t, 1, snap.Score)
}

func TestLab_SyllabusSwitchDiscardsInFlightQuiz(t *testing.T) {
	t.Parallel()

	entered := make(chan struct{})
	release := make(chan struct{})
	gen := mocks.NewMockGenerator()
	gen.GenerateQuizFn = func(ctx context.Context, topic string) (domain.Quiz, error) {
		close(entered)
		<-release
		return mocks.SampleQuiz(topic), nil
	}
	lab := newTestLab(t, gen)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := lab.StartQuiz(ctx, "", "u1")
		done <- err
	}()
	<-entered

	_, err := lab.StartQuiz(ctx, "Alkenes", "")
	assert.ErrorIs(t, err, service.ErrOperationInProgress)

	modules, err := lab.SelectSyllabus(ctx, "IB")
	require.NoError(t, err)
	assert.Equal(t, "ib1", modules[0].ID)

	close(release)
	assert.ErrorIs(t, <-done, service.ErrStaleResponse)

	_, err = lab.QuizSnapshot()
	assert.ErrorIs(t, err, service.ErrNoQuiz)
}

func TestLab_SelectSyllabus(t *testing.T) {
	t.Parallel()

	lab := newTestLab(t, mocks.NewMockGenerator())
	ctx := context.Background()

	_, err := lab.StartQuiz(ctx, "", "u1")
	require.NoError(t, err)
	passQuiz(t, lab)

	_, err = lab.SelectSyllabus(ctx, "GCSE")
	assert.ErrorIs(t, err, curriculum.ErrUnknownSyllabus)
	assert.Equal(t, "UNDERGRAD", lab.Syllabus())
	assert.Equal(t, domain.ModuleCompleted, lab.Modules()[0].Status)

	modules, err := lab.SelectSyllabus(ctx, "ALEVEL")
	require.NoError(t, err)
	assert.Equal(t, "ALEVEL", lab.Syllabus())
	assert.Equal(t, domain.ModuleActive, modules[0].Status)
	assert.Zero(t, lab.CompletionPercent())
	assert.Equal(t, 1, lab.Stats().QuizzesTaken, "stats survive a syllabus switch")

	names := make([]string, 0, len(lab.Syllabi()))
	for _, s := range lab.Syllabi() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"UNDERGRAD", "ALEVEL", "IB"}, names)
}

func TestLab_StudyGuide(t *testing.T) {
	t.Parallel()

	gen := mocks.NewMockGenerator()
	lab := newTestLab(t, gen)
	ctx := context.Background()

	_, ok := lab.StudyGuide()
	assert.False(t, ok)

	guide, err := lab.GenerateStudyGuide(ctx, "u1", "")
	require.NoError(t, err)
	assert.Equal(t, "Chemical Bonding", guide.Topic)

	guide, err = lab.GenerateStudyGuide(ctx, "", "Aromaticity")
	require.NoError(t, err)
	assert.Equal(t, "Aromaticity", guide.Topic)

	stored, ok := lab.StudyGuide()
	require.True(t, ok)
	assert.Equal(t, guide, stored)

	_, err = lab.GenerateStudyGuide(ctx, "u5", "")
	assert.ErrorIs(t, err, service.ErrModuleLocked)
	_, err = lab.GenerateStudyGuide(ctx, "", "")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = lab.SelectSyllabus(ctx, "IB")
	require.NoError(t, err)
	_, ok = lab.StudyGuide()
	assert.False(t, ok, "switching syllabus clears the guide")
}

func TestLab_ReactionSteps(t *testing.T) {
	t.Parallel()

	gen := mocks.NewMockGenerator()
	lab := newTestLab(t, gen)
	ctx := context.Background()

	_, err := lab.ReactionSteps(ctx, "")
	assert.ErrorIs(t, err, domain.ErrValidation)

	steps, err := lab.ReactionSteps(ctx, "SN2 of bromoethane with hydroxide")
	require.NoError(t, err)
	assert.Equal(t, "SN2 of bromoethane with hydroxide", steps.Name)
	require.Len(t, steps.Steps, 1)

	gen.Err = generation.ErrContentBlocked
	_, err = lab.ReactionSteps(ctx, "something")
	assert.ErrorIs(t, err, generation.ErrContentBlocked)
}

func TestLab_Chat(t *testing.T) {
	t.Parallel()

	gen := mocks.NewMockGenerator()
	var sent []string
	gen.ChatFn = func(ctx context.Context, history []domain.ChatTurn, message string) (string, error) {
		sent = append(sent, message)
		return "reply " + string(rune('0'+len(sent))), nil
	}
	lab := newTestLab(t, gen)
	ctx := context.Background()

	_, err := lab.Chat(ctx, "  ")
	assert.ErrorIs(t, err, domain.ErrValidation)

	reply, err := lab.Chat(ctx, "What is a carbocation?")
	require.NoError(t, err)
	assert.Equal(t, domain.ChatRoleModel, reply.Role)
	assert.Equal(t, "reply 1", reply.Text)
	assert.Equal(t, "What is a carbocation?", sent[0])

	_, err = lab.SearchMolecule(ctx, "ethanol")
	require.NoError(t, err)
	_, err = lab.Chat(ctx, "Is it polar?")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sent[1], `[Context: User is currently viewing a molecule named "Ethanol".`))
	assert.Contains(t, sent[1], "Atoms: 4. Bonds: 3.")
	assert.True(t, strings.HasSuffix(sent[1], "User Question: Is it polar?"))

	history := lab.ChatHistory()
	require.Len(t, history, 4)
	assert.Equal(t, domain.ChatRoleUser, history[2].Role)
	assert.Equal(t, "Is it polar?", history[2].Text, "history keeps the message as typed")
	assert.NotEqual(t, history[0].ID, history[1].ID)

	require.Len(t, gen.Histories, 2)
	assert.Empty(t, gen.Histories[0])
	assert.Equal(t, []domain.ChatTurn{
		{Role: domain.ChatRoleUser, Text: "What is a carbocation?"},
		{Role: domain.ChatRoleModel, Text: "reply 1"},
	}, gen.Histories[1])

	gen.ChatFn = func(context.Context, []domain.ChatTurn, string) (string, error) {
		return "", errors.New("boom")
	}
	_, err = lab.Chat(ctx, "Another?")
	assert.Error(t, err)
	assert.Len(t, lab.ChatHistory(), 4, "failed turns are not recorded")

	lab.ResetChat()
	assert.Empty(t, lab.ChatHistory())
}
