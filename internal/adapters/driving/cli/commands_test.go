package cli

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

func TestRuntime_NotConfigured(t *testing.T) {
	previous := newRuntime
	newRuntime = nil
	defer func() { newRuntime = previous }()

	_, err := run(t, nil, "", "status")
	assert.ErrorIs(t, err, errNoRuntime)
}

func TestRuntime_FactoryReceivesConfigDir(t *testing.T) {
	previous := newRuntime
	defer func() {
		newRuntime = previous
		configDir = ""
	}()

	var got string
	SetRuntimeFactory(func(dir string) (Runtime, error) {
		got = dir
		return newMockRuntime(), nil
	})

	rt = nil
	rootCmd.SetArgs([]string{"--config", "/etc/docrag", "config", "show"})
	defer rootCmd.SetArgs(nil)
	rootCmd.SetOut(new(strings.Builder))
	defer rootCmd.SetOut(nil)

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "/etc/docrag", got)
	rt = nil
}

func TestAsk(t *testing.T) {
	r := newMockRuntime()
	r.manager.answer = domain.Answer{
		Text:       "Act in the customer's best interest [1].",
		Sources:    []domain.SourceRef{{Source: "reg-bi.pdf", ChunkIndex: 4, Confidence: 0.91}},
		Confidence: 0.91,
	}

	out, err := run(t, r, "", "ask", "-k", "2", "What", "is", "Reg", "BI?")

	require.NoError(t, err)
	assert.Equal(t, []string{"What is Reg BI?"}, r.manager.questions)
	assert.Equal(t, 2, r.manager.topK)
	assert.False(t, r.manager.watch)
	assert.True(t, r.manager.stopped)
	assert.Contains(t, out, "Act in the customer's best interest [1].")
	assert.Contains(t, out, "Sources (confidence 0.91):")
	assert.Contains(t, out, "[1] reg-bi.pdf, chunk 4 (0.91)")
}

func TestAsk_JSON(t *testing.T) {
	r := newMockRuntime()
	r.manager.answer = domain.Answer{Text: domain.NoInformationAnswer, Sources: []domain.SourceRef{}}

	out, err := run(t, r, "", "ask", "--json", "anything")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, domain.NoInformationAnswer, got["answer"])
	assert.Empty(t, got["sources"])
}

func TestAsk_Errors(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(r *mockRuntime)
		args    []string
		wantErr string
	}{
		{
			name:    "negative top-k",
			args:    []string{"ask", "--top-k", "-1", "q"},
			wantErr: "--top-k",
		},
		{
			name: "failed answer",
			setup: func(r *mockRuntime) {
				r.manager.answer = domain.Answer{Text: domain.ApologyAnswer, Error: "generation backend: status 500"}
			},
			args:    []string{"ask", "q"},
			wantErr: "answer failed: generation backend: status 500",
		},
		{
			name: "pipeline does not start",
			setup: func(r *mockRuntime) {
				r.manager.startErr = errors.New("corrupt summary")
			},
			args:    []string{"ask", "q"},
			wantErr: "start pipeline: corrupt summary",
		},
		{
			name: "pipeline cannot be built",
			setup: func(r *mockRuntime) {
				r.managerErr = errors.New("bad settings")
			},
			args:    []string{"ask", "q"},
			wantErr: "build pipeline: bad settings",
		},
		{
			name:    "missing question",
			args:    []string{"ask"},
			wantErr: "requires at least 1 arg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newMockRuntime()
			if tt.setup != nil {
				tt.setup(r)
			}
			_, err := run(t, r, "", tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestIngest(t *testing.T) {
	r := newMockRuntime()
	r.manager.results = map[string]domain.IngestResult{
		"a.pdf": {Path: "a.pdf", State: domain.FileDone, Chunks: 5, New: 3, Skipped: 2},
	}
	r.manager.ingestErr = map[string]error{"b.pdf": errors.New("no text layer")}

	out, err := run(t, r, "", "ingest", "a.pdf", "b.pdf")

	require.Error(t, err)
	assert.Equal(t, "1 of 2 file(s) failed", err.Error())
	assert.Contains(t, out, "OK     a.pdf: 5 chunks (3 new, 2 already stored)")
	assert.Contains(t, out, "FAILED b.pdf: no text layer")
}

func TestStatus(t *testing.T) {
	r := newMockRuntime()
	r.manager.status = domain.Status{
		State:         "ready",
		DocumentCount: 42,
		Model:         "hash-bow",
		Dimensions:    256,
		QueueLength:   1,
		WatchFolder:   "/docs",
		ModelMismatch: true,
		RecentFiles: []domain.IngestResult{
			{Path: "/docs/new.pdf", State: domain.FileDone, Chunks: 7, Finished: time.Now()},
			{Path: "/docs/bad.pdf", State: domain.FileFailed, Error: "no text"},
		},
	}

	out, err := run(t, r, "", "status", "--recent", "1")

	require.NoError(t, err)
	assert.Contains(t, out, "Chunks:     42")
	assert.Contains(t, out, "hash-bow (256 dimensions)")
	assert.Contains(t, out, "Folder:     /docs")
	assert.Contains(t, out, "docrag clear")
	assert.Contains(t, out, "new.pdf (7 chunks)")
	assert.NotContains(t, out, "bad.pdf")
}

func TestStatus_JSON(t *testing.T) {
	r := newMockRuntime()
	r.manager.status = domain.Status{State: "ready", DocumentCount: 3}

	out, err := run(t, r, "", "status", "--json")
	require.NoError(t, err)

	var got domain.Status
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 3, got.DocumentCount)
}

func TestClear(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		stdin     string
		wantClear bool
		wantErr   bool
	}{
		{name: "confirmed", args: []string{"clear"}, stdin: "y\n", wantClear: true},
		{name: "yes flag", args: []string{"clear", "--yes"}, wantClear: true},
		{name: "declined", args: []string{"clear"}, stdin: "n\n", wantErr: true},
		{name: "no input", args: []string{"clear"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newMockRuntime()
			out, err := run(t, r, tt.stdin, tt.args...)

			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, "aborted", err.Error())
			} else {
				require.NoError(t, err)
				assert.Contains(t, out, "Store cleared.")
			}
			assert.Equal(t, tt.wantClear, r.manager.cleared)
		})
	}
}

func TestClear_StoreThatFailsToOpen(t *testing.T) {
	r := newMockRuntime()
	r.manager.startErr = errors.New("open vector store: 6 records in 2 pages does not fit page size 10")

	out, err := run(t, r, "", "clear", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Store cleared.")
	assert.True(t, r.manager.cleared)
	assert.True(t, r.manager.stopped)
}

func TestClear_Error(t *testing.T) {
	r := newMockRuntime()
	r.manager.clearErr = errors.New("disk full")

	_, err := run(t, r, "", "clear", "--yes")
	assert.EqualError(t, err, "disk full")
	assert.True(t, r.manager.stopped)
}

func TestWatch(t *testing.T) {
	r := newMockRuntime()
	r.manager.status = domain.Status{WatchFolder: "/docs", DocumentCount: 9}

	out, err := run(t, r, "", "watch")

	require.NoError(t, err)
	assert.True(t, r.manager.watch)
	assert.True(t, r.manager.stopped)
	assert.Contains(t, out, "Watching /docs (9 chunks indexed)")
}

func TestTUI_RequiresTerminal(t *testing.T) {
	previous := isTerminal
	isTerminal = func() bool { return false }
	defer func() { isTerminal = previous }()

	r := newMockRuntime()
	_, err := run(t, r, "", "tui")

	assert.ErrorIs(t, err, errNotTerminal)
	assert.False(t, r.manager.started)
}

func TestCommandTree(t *testing.T) {
	want := []string{"ask", "clear", "config", "ingest", "mcp", "serve", "status", "tui", "version", "watch"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}

	flag := serveCmd.Flags().Lookup("mcp-path")
	require.NotNil(t, flag)
	assert.Equal(t, "/mcp", flag.DefValue)
	assert.Equal(t, "true", serveCmd.Flags().Lookup("watch").DefValue)
}
