// internal/storage/memory/memory_test.go
package memory

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/flightgym/flightgym/internal/config"
	"github.com/flightgym/flightgym/pkg/core"
)

func testEpisode() *core.Episode {
	return &core.Episode{
		EnvID:       "JSBSimEnvPoints-v0",
		Seed:        7,
		StartTime:   time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		InitialGoal: core.Position3D{X: 5000, Y: 0, Z: 3000},
	}
}

func testStep(episodeID, n uint) *core.StepRecord {
	var obs core.Observation
	obs[core.IdxLat] = float64(n) * 10
	obs[core.IdxAlt] = 1500
	return &core.StepRecord{
		EpisodeID:   episodeID,
		Step:        n,
		Time:        time.Date(2024, 1, 15, 10, 30, int(n), 0, time.UTC),
		Observation: obs,
		Goal:        core.Position3D{X: 5000, Y: 0, Z: 3000},
		Action:      core.Action{Roll: 0.05, Pitch: -0.2, Throttle: 0.5},
		Reward:      -float64(n),
	}
}

func TestNew(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: "/tmp/test", Format: FormatJSONGz})

	if b == nil {
		t.Fatal("New returned nil")
	}
	if b.cfg.OutputDir != "/tmp/test" {
		t.Errorf("expected OutputDir=/tmp/test, got %s", b.cfg.OutputDir)
	}
	if b.episodes == nil {
		t.Error("episodes map not initialized")
	}
}

func TestInitAndClose(t *testing.T) {
	b := New(config.MemoryConfig{})

	if err := b.Init(); err != nil {
		t.Errorf("Init failed: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestStartEpisode_AssignsSequentialIDs(t *testing.T) {
	b := New(config.MemoryConfig{})

	first := testEpisode()
	second := testEpisode()
	if err := b.StartEpisode(first); err != nil {
		t.Fatalf("StartEpisode failed: %v", err)
	}
	if err := b.StartEpisode(second); err != nil {
		t.Fatalf("StartEpisode failed: %v", err)
	}

	if first.ID != 1 || second.ID != 2 {
		t.Errorf("expected IDs 1 and 2, got %d and %d", first.ID, second.ID)
	}
	ids := b.EpisodeIDs()
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Errorf("unexpected episode IDs %v", ids)
	}
}

func TestRecordStep(t *testing.T) {
	b := New(config.MemoryConfig{})
	ep := testEpisode()
	_ = b.StartEpisode(ep)

	for i := uint(1); i <= 3; i++ {
		if err := b.RecordStep(testStep(ep.ID, i)); err != nil {
			t.Fatalf("RecordStep failed: %v", err)
		}
	}

	record, ok := b.Episode(ep.ID)
	if !ok {
		t.Fatal("episode not found")
	}
	if len(record.Steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(record.Steps))
	}
	if record.Steps[2].Step != 3 || record.Steps[2].Reward != -3 {
		t.Errorf("unexpected last step %+v", record.Steps[2])
	}
}

func TestRecordStep_UnknownEpisode(t *testing.T) {
	b := New(config.MemoryConfig{})

	err := b.RecordStep(testStep(42, 1))
	if err == nil || !strings.Contains(err.Error(), "not started") {
		t.Errorf("expected not started error, got %v", err)
	}
}

func TestEpisode_ReturnsCopy(t *testing.T) {
	b := New(config.MemoryConfig{})
	ep := testEpisode()
	_ = b.StartEpisode(ep)
	_ = b.RecordStep(testStep(ep.ID, 1))

	record, _ := b.Episode(ep.ID)
	record.Steps[0].Reward = 99

	again, _ := b.Episode(ep.ID)
	if again.Steps[0].Reward != -1 {
		t.Error("mutating a returned record changed backend state")
	}

	if _, ok := b.Episode(1234); ok {
		t.Error("expected unknown episode to be missing")
	}
}

func TestEndEpisode_NoFormatSkipsExport(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: dir})
	ep := testEpisode()
	_ = b.StartEpisode(ep)

	ep.Steps = 12
	ep.Reason = core.ReasonCollision
	if err := b.EndEpisode(ep); err != nil {
		t.Fatalf("EndEpisode failed: %v", err)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("expected no files, got %d", len(entries))
	}
	record, _ := b.Episode(ep.ID)
	if record.Episode.Steps != 12 || record.Episode.Reason != core.ReasonCollision {
		t.Errorf("episode summary not stored: %+v", record.Episode)
	}
}

func TestEndEpisode_UnknownEpisode(t *testing.T) {
	b := New(config.MemoryConfig{})
	if err := b.EndEpisode(&core.Episode{ID: 3}); err == nil {
		t.Error("expected error for unknown episode")
	}
}

func TestEndEpisode_ExportFormats(t *testing.T) {
	for _, format := range []string{FormatJSON, FormatJSONGz, FormatMsgpack, FormatMsgpackZst} {
		t.Run(format, func(t *testing.T) {
			dir := t.TempDir()
			b := New(config.MemoryConfig{OutputDir: dir, Format: format})

			ep := testEpisode()
			_ = b.StartEpisode(ep)
			for i := uint(1); i <= 4; i++ {
				_ = b.RecordStep(testStep(ep.ID, i))
			}
			ep.Steps = 4
			ep.TotalReward = -10
			ep.Reason = core.ReasonGoalReached
			ep.EndTime = ep.StartTime.Add(time.Minute)
			if err := b.EndEpisode(ep); err != nil {
				t.Fatalf("EndEpisode failed: %v", err)
			}

			path := b.ExportedFilePath()
			if filepath.Dir(path) != dir {
				t.Errorf("export written outside output dir: %s", path)
			}
			if !strings.HasSuffix(path, "JSBSimEnvPoints-v0_0001_20240115_103000."+format) {
				t.Errorf("unexpected export filename %s", filepath.Base(path))
			}

			data, err := ReadExport(path)
			if err != nil {
				t.Fatalf("ReadExport failed: %v", err)
			}
			if data.Version != ExportVersion {
				t.Errorf("expected version %d, got %d", ExportVersion, data.Version)
			}
			if data.Episode.Reason != core.ReasonGoalReached || data.Episode.TotalReward != -10 {
				t.Errorf("unexpected episode %+v", data.Episode)
			}
			if !data.Episode.StartTime.Equal(ep.StartTime) {
				t.Errorf("start time mismatch: %v", data.Episode.StartTime)
			}
			if len(data.Steps) != 4 {
				t.Fatalf("expected 4 steps, got %d", len(data.Steps))
			}
			if data.Steps[3].Observation[core.IdxLat] != 40 || data.Steps[3].Action.Pitch != -0.2 {
				t.Errorf("unexpected step %+v", data.Steps[3])
			}
			if _, ok := b.Episode(ep.ID); ok {
				t.Error("exported episode still held in memory")
			}
		})
	}
}

func TestEndEpisode_UnknownFormat(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir(), Format: "xml"})
	ep := testEpisode()
	_ = b.StartEpisode(ep)

	if err := b.EndEpisode(ep); err == nil {
		t.Error("expected error for unknown format")
	}
	if _, ok := b.Episode(ep.ID); !ok {
		t.Error("episode dropped after failed export")
	}
}

func TestEndEpisode_ExportReleasesEpisodes(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir(), Format: FormatMsgpack})

	for i := 0; i < 20; i++ {
		ep := testEpisode()
		ep.StartTime = ep.StartTime.Add(time.Duration(i) * time.Second)
		_ = b.StartEpisode(ep)
		_ = b.RecordStep(testStep(ep.ID, 1))
		if err := b.EndEpisode(ep); err != nil {
			t.Fatalf("EndEpisode %d failed: %v", i, err)
		}
	}

	if ids := b.EpisodeIDs(); len(ids) != 0 {
		t.Errorf("expected no episodes held, got %v", ids)
	}
}

func TestEndEpisode_CapsRetainedEpisodes(t *testing.T) {
	b := New(config.MemoryConfig{MaxEpisodes: 2})

	open := testEpisode()
	_ = b.StartEpisode(open)
	for i := 0; i < 3; i++ {
		ep := testEpisode()
		_ = b.StartEpisode(ep)
		if err := b.EndEpisode(ep); err != nil {
			t.Fatalf("EndEpisode failed: %v", err)
		}
	}

	// finished 2 was evicted, the open episode 1 is untouched
	ids := b.EpisodeIDs()
	if len(ids) != 3 || ids[0] != 1 || ids[1] != 3 || ids[2] != 4 {
		t.Errorf("expected [1 3 4], got %v", ids)
	}
	if err := b.RecordStep(testStep(open.ID, 1)); err != nil {
		t.Errorf("open episode lost: %v", err)
	}
}

func TestConcurrentRecordStep(t *testing.T) {
	b := New(config.MemoryConfig{})
	ep := testEpisode()
	_ = b.StartEpisode(ep)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_ = b.RecordStep(testStep(ep.ID, uint(i*10+j)))
			}
		}(i)
	}
	wg.Wait()

	record, _ := b.Episode(ep.ID)
	if len(record.Steps) != 100 {
		t.Errorf("expected 100 steps, got %d", len(record.Steps))
	}
}
