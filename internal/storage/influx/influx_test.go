package influx

import (
	"bufio"
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/flightgym/flightgym/internal/config"
	"github.com/flightgym/flightgym/pkg/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unreachableConfig(backupPath string) config.InfluxConfig {
	return config.InfluxConfig{
		Protocol:   "http",
		Host:       "127.0.0.1",
		Port:       "1",
		Org:        "flightgym",
		Bucket:     "rollouts",
		BackupPath: backupPath,
	}
}

func readBackup(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer gz.Close()

	var lines []string
	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.NoError(t, scanner.Err())
	return lines
}

func TestStepPoint(t *testing.T) {
	var obs core.Observation
	obs[core.IdxLat] = 3
	obs[core.IdxLon] = 4
	obs[core.IdxAlt] = 100
	obs[core.IdxMach] = 0.5
	s := &core.StepRecord{
		EpisodeID:   7,
		Step:        12,
		Time:        time.Unix(1700000000, 0),
		Observation: obs,
		Goal:        core.Position3D{Z: 100},
		Reward:      -0.05,
		Reason:      core.ReasonWaypointReached,
	}

	line := strings.TrimSpace(lineOf(StepPoint("JSBSimEnvPoints-v0", s)))

	assert.True(t, strings.HasPrefix(line, "step,env=JSBSimEnvPoints-v0,episode=7 "), line)
	assert.Contains(t, line, "distance=5")
	assert.Contains(t, line, "step=12i")
	assert.Contains(t, line, `reason="waypoint_reached"`)
	assert.True(t, strings.HasSuffix(line, " 1700000000000000000"), line)
}

func TestStepPoint_OmitsEmptyReason(t *testing.T) {
	line := lineOf(StepPoint("JSBSim-v0", &core.StepRecord{EpisodeID: 1, Time: time.Unix(1, 0)}))
	assert.NotContains(t, line, "reason=")
}

func TestEpisodePoint(t *testing.T) {
	start := time.Unix(1700000000, 0)
	e := &core.Episode{
		ID:          3,
		EnvID:       "JSBSimCC-v0",
		StartTime:   start,
		EndTime:     start.Add(90 * time.Second),
		Steps:       40,
		TotalReward: 9.5,
		Reason:      core.ReasonGoalReached,
	}

	line := lineOf(EpisodePoint(e))

	assert.True(t, strings.HasPrefix(line, "episode,env=JSBSimCC-v0,reason=goal_reached "), line)
	assert.Contains(t, line, "durationSeconds=90")
	assert.Contains(t, line, "steps=40i")
	assert.Contains(t, line, "totalReward=9.5")
}

func TestBackend_FallsBackToBackupFile(t *testing.T) {
	backupPath := filepath.Join(t.TempDir(), "backup", "influx.lp.gz")
	b := New(unreachableConfig(backupPath), zerolog.Nop())

	require.NoError(t, b.Init())
	assert.False(t, b.IsValid())

	ep := &core.Episode{EnvID: "JSBSim-v0", StartTime: time.Unix(100, 0)}
	require.NoError(t, b.StartEpisode(ep))
	assert.Equal(t, uint(1), ep.ID)

	for i := uint(1); i <= 2; i++ {
		require.NoError(t, b.RecordStep(&core.StepRecord{EpisodeID: ep.ID, Step: i, Time: time.Unix(100+int64(i), 0)}))
	}
	ep.EndTime = time.Unix(110, 0)
	ep.Reason = core.ReasonCollision
	require.NoError(t, b.EndEpisode(ep))
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	lines := readBackup(t, backupPath)
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "step,"))
	assert.True(t, strings.HasPrefix(lines[2], "episode,env=JSBSim-v0,reason=collision"))
}

func TestBackend_NoBackupPath(t *testing.T) {
	b := New(unreachableConfig(""), zerolog.Nop())
	assert.Error(t, b.Init())
	assert.NoError(t, b.Close())
}

func TestBackend_UnknownEpisode(t *testing.T) {
	b := New(unreachableConfig(filepath.Join(t.TempDir(), "b.lp.gz")), zerolog.Nop())
	require.NoError(t, b.Init())
	t.Cleanup(func() { b.Close() })

	assert.Error(t, b.RecordStep(&core.StepRecord{EpisodeID: 9}))
	assert.Error(t, b.EndEpisode(&core.Episode{ID: 9}))
}

func TestBackend_WriteAfterClose(t *testing.T) {
	b := New(unreachableConfig(filepath.Join(t.TempDir(), "b.lp.gz")), zerolog.Nop())
	require.NoError(t, b.Init())

	ep := &core.Episode{EnvID: "JSBSim-v0"}
	require.NoError(t, b.StartEpisode(ep))
	require.NoError(t, b.Close())

	assert.Error(t, b.RecordStep(&core.StepRecord{EpisodeID: ep.ID}))
}
