package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainHandler(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(NewPlainHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	log.Debug("hidden")
	log.With("resource", "students").WithGroup("query").Info("list request", "page", 2, "search", "mary w", "took", 150*time.Millisecond)

	line := buf.String()
	require.Equal(t, 1, strings.Count(line, "\n"))
	assert.NotContains(t, line, "hidden")
	assert.NotContains(t, line, "\033[")
	assert.Contains(t, line, "INFO  list request")
	assert.Contains(t, line, " resource=students")
	assert.Contains(t, line, " query.page=2")
	assert.Contains(t, line, ` query.search="mary w"`)
	assert.Contains(t, line, " query.took=150ms")
}

func TestPrettyHandlerColours(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, nil))

	log.Error("fetch failed", slog.Group("err", slog.String("code", "BAD_REQUEST")))

	line := buf.String()
	assert.Contains(t, line, red+"ERROR"+reset)
	assert.Contains(t, line, cyan+"err.code"+reset+"=BAD_REQUEST")
}
