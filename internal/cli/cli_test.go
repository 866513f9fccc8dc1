package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ovaphlow/pitchfork/service-meeting/internal/meeting"
	"github.com/ovaphlow/pitchfork/service-meeting/internal/table"
	"github.com/ovaphlow/pitchfork/service-meeting/internal/throttle"
)

func sampleRows() []table.Row {
	return []table.Row{
		{
			table.ColRowType:        table.RowTypeUser,
			table.ColUserID:         "alice",
			table.ColPassword:       "pw123a",
			table.ColAvailableDates: "2026-03-11",
			table.ColFriends:        "bob",
			table.ColGroups:         "study",
			table.ColGroupMembers:   "|study:alice",
			"nickname":              "al",
		},
		{
			table.ColRowType:      table.RowTypeUser,
			table.ColUserID:       "bob",
			table.ColPassword:     "pw123b",
			table.ColFriends:      "alice",
			table.ColGroups:       "study",
			table.ColGroupMembers: "|study:alice,bob",
		},
		{
			table.ColRowType:         table.RowTypeEvent,
			table.ColActivityID:      "ev-1",
			table.ColGroupName:       "study",
			table.ColEventTitle:      "Review, part 1",
			table.ColEventDate:       "2026-04-01",
			table.ColCreatedBy:       "alice",
			table.ColParticipantsYes: "alice,bob",
		},
	}
}

func memoryOpener(rows ...table.Row) (Opener, *table.MemoryStore) {
	store := table.NewMemoryStore(rows...)
	svc := meeting.NewService(table.New(store, table.Options{Limiter: throttle.New(0, nil)}), meeting.Options{
		Clock:    clockwork.NewFakeClockAt(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)),
		Location: time.UTC,
	})
	return func(ctx context.Context) (*meeting.Service, func() error, error) {
		return svc, nil, nil
	}, store
}

func execute(t *testing.T, open Opener, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand(open)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	open, _ := memoryOpener()
	cmd := NewRootCommand(open)
	require.NotNil(t, cmd)
	assert.Equal(t, "meetingctl", cmd.Use)

	for _, name := range []string{"sweep", "check", "export"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	open, _ := memoryOpener()
	_, err := execute(t, open, "sweep", "--format", "xml")
	assert.ErrorContains(t, err, "invalid format")
}

func TestSweep(t *testing.T) {
	rows := append(sampleRows(), table.Row{
		table.ColRowType:    table.RowTypeEvent,
		table.ColActivityID: "old",
		table.ColGroupName:  "study",
		table.ColEventDate:  "2026-03-01",
	})
	open, store := memoryOpener(rows...)

	out, err := execute(t, open, "sweep")
	require.NoError(t, err)
	assert.Equal(t, "removed 1 expired event(s)\n", out)
	assert.Equal(t, 1, store.Writes())

	out, err = execute(t, open, "sweep", "--format", "json")
	require.NoError(t, err)
	var res SweepResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Zero(t, res.Removed)
	assert.Equal(t, 1, store.Writes())
}

func TestCheck(t *testing.T) {
	open, _ := memoryOpener(sampleRows()...)
	out, err := execute(t, open, "check")
	require.NoError(t, err)
	assert.Equal(t, "table is consistent\n", out)

	broken := sampleRows()
	broken[1][table.ColFriends] = ""
	open, _ = memoryOpener(broken...)
	out, err = execute(t, open, "check", "--format", "json")
	assert.ErrorContains(t, err, "1 violation(s) found")

	var res CheckResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.False(t, res.Valid)
	require.Len(t, res.Violations, 1)
	assert.Equal(t, meeting.ViolationAsymmetricFriend, res.Violations[0].Kind)
}

func TestExportCSV(t *testing.T) {
	open, _ := memoryOpener(sampleRows()...)
	out, err := execute(t, open, "export")
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "export_csv", []byte(out))
}

func TestExportJSONShowsPasswords(t *testing.T) {
	open, _ := memoryOpener(sampleRows()...)
	out, err := execute(t, open, "export", "--as", "json", "--show-passwords")
	require.NoError(t, err)

	var doc Document
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Rows, 3)
	assert.Equal(t, "pw123a", doc.Rows[0].Get(table.ColPassword))
	assert.Equal(t, "nickname", doc.Columns[len(doc.Columns)-1])
}

func TestExportYAML(t *testing.T) {
	open, _ := memoryOpener(sampleRows()...)
	out, err := execute(t, open, "export", "--as", "yaml")
	require.NoError(t, err)

	var doc Document
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Rows, 3)
	assert.Equal(t, "***", doc.Rows[1].Get(table.ColPassword))
	assert.Equal(t, "Review, part 1", doc.Rows[2].Get(table.ColEventTitle))
}

func TestExportUnknownEncoding(t *testing.T) {
	open, _ := memoryOpener()
	_, err := execute(t, open, "export", "--as", "xlsx")
	assert.ErrorContains(t, err, "unknown export encoding")
}
