package curriculum

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/phrazzld/chemlab/internal/domain"
	"github.com/phrazzld/chemlab/internal/events"
	"github.com/phrazzld/chemlab/internal/platform/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProgression(t *testing.T, syllabus string, opts ...Option) *Progression {
	t.Helper()
	catalog, err := DefaultCatalog()
	require.NoError(t, err)
	p, err := NewProgression(catalog, syllabus, slog.New(slog.NewTextHandler(io.Discard, nil)), opts...)
	require.NoError(t, err)
	return p
}

func statuses(modules []domain.Module) []domain.ModuleStatus {
	out := make([]domain.ModuleStatus, len(modules))
	for i, m := range modules {
		out[i] = m.Status
	}
	return out
}

func TestDefaultCatalog(t *testing.T) {
	t.Parallel()

	catalog, err := DefaultCatalog()
	require.NoError(t, err)
	assert.Equal(t, []string{"UNDERGRAD", "ALEVEL", "IB"}, catalog.Names())

	counts := map[string]int{"UNDERGRAD": 18, "ALEVEL": 18, "IB": 14}
	for name, want := range counts {
		modules, err := catalog.Modules(name)
		require.NoError(t, err)
		assert.Len(t, modules, want, name)
		assert.Equal(t, domain.ModuleActive, modules[0].Status)
		for _, m := range modules[1:] {
			assert.Equal(t, domain.ModuleLocked, m.Status, m.ID)
			assert.Nil(t, m.Score)
		}
	}

	modules, _ := catalog.Modules("UNDERGRAD")
	assert.Equal(t, "u12", modules[11].ID)
	assert.Equal(t, "Aromaticity", modules[11].Topic)
	assert.Contains(t, modules[11].Description, "Hückel")

	_, err = catalog.Modules("GCSE")
	assert.ErrorIs(t, err, ErrUnknownSyllabus)
}

func TestLoadCatalog_Rejects(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"empty":          `syllabi: []`,
		"not yaml":       `syllabi: [`,
		"no modules":     "syllabi:\n  - name: X\n    modules: []\n",
		"duplicate name": "syllabi:\n  - name: X\n    modules: [{id: a, topic: t}]\n  - name: X\n    modules: [{id: b, topic: t}]\n",
		"duplicate id":   "syllabi:\n  - name: X\n    modules: [{id: a, topic: t}, {id: a, topic: u}]\n",
		"missing topic":  "syllabi:\n  - name: X\n    modules: [{id: a}]\n",
		"missing name":   "syllabi:\n  - modules: [{id: a, topic: t}]\n",
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadCatalog([]byte(src))
			assert.Error(t, err)
		})
	}
}

func TestSelectSyllabus(t *testing.T) {
	t.Parallel()

	p := newTestProgression(t, "UNDERGRAD")
	require.True(t, p.OnQuizUnlockEvent("u1", 80))

	require.NoError(t, p.SelectSyllabus("IB"))
	assert.Equal(t, "IB", p.Syllabus())
	modules := p.Modules()
	require.Len(t, modules, 14)
	assert.Equal(t, "ib1", modules[0].ID)
	assert.Equal(t, domain.ModuleActive, modules[0].Status)

	// switching back starts over
	require.NoError(t, p.SelectSyllabus("UNDERGRAD"))
	assert.Equal(t, domain.ModuleActive, p.Modules()[0].Status)
	assert.Equal(t, 0, p.CompletionPercent())

	err := p.SelectSyllabus("GCSE")
	assert.ErrorIs(t, err, ErrUnknownSyllabus)
	assert.Equal(t, "UNDERGRAD", p.Syllabus(), "failed selection keeps the current syllabus")
}

func TestOnQuizUnlockEvent(t *testing.T) {
	t.Parallel()

	t.Run("completes and activates next", func(t *testing.T) {
		t.Parallel()
		p := newTestProgression(t, "ALEVEL")
		before := p.Modules()

		assert.True(t, p.OnQuizUnlockEvent("a1", domain.PassPercentage))

		after := p.Modules()
		assert.Equal(t, domain.ModuleCompleted, after[0].Status)
		require.NotNil(t, after[0].Score)
		assert.Equal(t, domain.PassPercentage, *after[0].Score)
		assert.Equal(t, domain.ModuleActive, after[1].Status)
		assert.Equal(t, domain.ModuleLocked, after[2].Status)

		// earlier snapshot untouched
		assert.Equal(t, domain.ModuleActive, before[0].Status)
		assert.Nil(t, before[0].Score)
	})

	t.Run("below threshold is a no-op", func(t *testing.T) {
		t.Parallel()
		p := newTestProgression(t, "ALEVEL")
		assert.False(t, p.OnQuizUnlockEvent("a1", domain.PassPercentage-1))
		assert.Equal(t, domain.ModuleActive, p.Modules()[0].Status)
		assert.Nil(t, p.Modules()[0].Score)
	})

	t.Run("unknown module is a no-op", func(t *testing.T) {
		t.Parallel()
		p := newTestProgression(t, "ALEVEL")
		assert.False(t, p.OnQuizUnlockEvent("u1", 100))
		assert.Equal(t, statuses(newTestProgression(t, "ALEVEL").Modules()), statuses(p.Modules()))
	})

	t.Run("last module has no successor", func(t *testing.T) {
		t.Parallel()
		p := newTestProgression(t, "IB")
		assert.True(t, p.OnQuizUnlockEvent("ib14", 90))
		modules := p.Modules()
		assert.Equal(t, domain.ModuleCompleted, modules[13].Status)
		assert.Equal(t, domain.ModuleActive, modules[0].Status)
	})

	t.Run("retake overwrites score and never demotes", func(t *testing.T) {
		t.Parallel()
		p := newTestProgression(t, "UNDERGRAD")
		require.True(t, p.OnQuizUnlockEvent("u1", 70))
		require.True(t, p.OnQuizUnlockEvent("u2", 90))
		require.True(t, p.OnQuizUnlockEvent("u1", 100))

		modules := p.Modules()
		assert.Equal(t, 100, *modules[0].Score)
		assert.Equal(t, domain.ModuleCompleted, modules[1].Status, "u2 stays completed")
		assert.Equal(t, 90, *modules[1].Score)
		assert.Equal(t, domain.ModuleActive, modules[2].Status)
	})
}

func TestCompletionPercent(t *testing.T) {
	t.Parallel()

	p := newTestProgression(t, "IB")
	for _, id := range []string{"ib1", "ib2", "ib3"} {
		require.True(t, p.OnQuizUnlockEvent(id, 75))
	}
	// 3 of 14
	assert.Equal(t, 21, p.CompletionPercent())
}

func TestHandleEvent(t *testing.T) {
	t.Parallel()

	collector := metrics.NewCollector("test")
	p := newTestProgression(t, "UNDERGRAD", WithMetrics(collector))

	ignored, err := events.NewEvent(events.TypeQuizCompleted, events.QuizCompletedPayload{ModuleID: "u1", Percentage: 100})
	require.NoError(t, err)
	require.NoError(t, p.HandleEvent(context.Background(), ignored))
	assert.Equal(t, domain.ModuleActive, p.Modules()[0].Status)

	unlock, err := events.NewEvent(events.TypeModuleUnlock, events.ModuleUnlockPayload{ModuleID: "u1", Percentage: 80})
	require.NoError(t, err)
	require.NoError(t, p.HandleEvent(context.Background(), unlock))
	assert.Equal(t, domain.ModuleCompleted, p.Modules()[0].Status)
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.ModulesCompleted))

	bad := &events.Event{Type: events.TypeModuleUnlock, Payload: []byte(`{`)}
	assert.Error(t, p.HandleEvent(context.Background(), bad))
}
