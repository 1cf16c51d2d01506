package tui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lepinkainen/shelfkeeper/internal/enrichment"
)

// drive feeds the model every message the run produces until it finishes.
func drive(t *testing.T, m tea.Model, keys ...tea.KeyMsg) tea.Model {
	t.Helper()
	sm := m.(*syncModel)
	for _, k := range keys {
		m, _ = m.Update(k)
	}
	for !sm.finished {
		m, _ = m.Update(sm.run.next())
	}
	return m
}

func TestRunSyncCompletes(t *testing.T) {
	var seen *syncModel
	withProgram(t, func(m tea.Model) (tea.Model, error) {
		m = drive(t, m)
		seen = m.(*syncModel)
		return m, nil
	})

	summary, err := RunSync("Syncing", func(progress enrichment.ProgressFunc, stopper *enrichment.Stopper) (enrichment.Summary, error) {
		progress(0, 2, enrichment.MsgStarting)
		progress(1, 2, "Downloaded cover: Dune")
		progress(2, 2, "Genre enriched: Hyperion")
		return enrichment.Summary{Total: 2, Downloaded: 1, Enriched: 1, Outcome: enrichment.Completed}, nil
	})
	require.NoError(t, err)

	assert.Equal(t, enrichment.Completed, summary.Outcome)
	require.NotNil(t, seen)
	assert.True(t, seen.finished)
	assert.LessOrEqual(t, seen.done, 2)
}

func TestRunSyncKeys(t *testing.T) {
	testCases := []struct {
		name     string
		key      tea.KeyMsg
		expected enrichment.Outcome
		status   string
	}{
		{name: "cancel", key: tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")}, expected: enrichment.Cancelled, status: "Cancelling"},
		{name: "escape", key: tea.KeyMsg{Type: tea.KeyEsc}, expected: enrichment.Cancelled, status: "Cancelling"},
		{name: "ctrl+c", key: tea.KeyMsg{Type: tea.KeyCtrlC}, expected: enrichment.Cancelled, status: "Cancelling"},
		{name: "stop and save", key: tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")}, expected: enrichment.Stopped, status: "Stopping"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var status string
			withProgram(t, func(m tea.Model) (tea.Model, error) {
				m = drive(t, m, tc.key)
				status = m.(*syncModel).status
				return m, nil
			})

			summary, err := RunSync("Syncing", func(_ enrichment.ProgressFunc, stopper *enrichment.Stopper) (enrichment.Summary, error) {
				<-stopper.Done()
				return enrichment.Summary{Outcome: stopper.Requested()}, nil
			})
			require.NoError(t, err)
			assert.Equal(t, tc.expected, summary.Outcome)
			assert.Contains(t, status, tc.status)
		})
	}
}

func TestRunSyncEarlyExitCancels(t *testing.T) {
	boom := errors.New("no tty")
	withProgram(t, func(m tea.Model) (tea.Model, error) { return m, boom })

	summary, err := RunSync("Syncing", func(_ enrichment.ProgressFunc, stopper *enrichment.Stopper) (enrichment.Summary, error) {
		<-stopper.Done()
		return enrichment.Summary{Outcome: stopper.Requested()}, nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, enrichment.Cancelled, summary.Outcome)
}

func TestRunSyncReturnsRunError(t *testing.T) {
	boom := errors.New("disk full")
	withProgram(t, func(m tea.Model) (tea.Model, error) { return drive(t, m), nil })

	_, err := RunSync("Syncing", func(enrichment.ProgressFunc, *enrichment.Stopper) (enrichment.Summary, error) {
		return enrichment.Summary{}, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestSyncModelView(t *testing.T) {
	m := newSyncModel("Syncing 3 books", newSyncRun(), enrichment.NewStopper())
	for i := 1; i <= logLines+2; i++ {
		_, _ = m.Update(progressMsg{done: i, total: logLines + 2, msg: "line"})
	}
	assert.Len(t, m.log, logLines)
	assert.InDelta(t, 1.0, m.percent(), 0.0001)

	view := m.View()
	assert.Contains(t, view, "Syncing 3 books")
	assert.Contains(t, view, "8/8")
	assert.Contains(t, view, "s stop and save")
}
