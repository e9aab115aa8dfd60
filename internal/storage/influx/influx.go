// Package influx implements the storage.Backend interface as InfluxDB time
// series. When the server cannot be reached, points are written as gzipped
// line protocol to a backup file instead.
package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/flightgym/flightgym/internal/config"
	"github.com/flightgym/flightgym/pkg/core"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"
)

// Measurement names
const (
	MeasurementStep    = "step"
	MeasurementEpisode = "episode"
)

// RetentionSeconds is the retention applied to a bucket created by Init.
const RetentionSeconds = 60 * 60 * 24 * 90 // 90 days

// PingTimeout bounds the health check made by Init.
var PingTimeout = 5 * time.Second

// Backend writes episodes and steps to InfluxDB or a backup file.
type Backend struct {
	cfg config.InfluxConfig
	log zerolog.Logger

	client       influxdb2.Client
	writer       influxdb2_api.WriteAPI
	backupFile   *os.File
	backupWriter *gzip.Writer
	isValid      bool

	mu        sync.Mutex
	idCounter uint
	envIDs    map[uint]string
	closed    bool
}

// New creates a new InfluxDB backend. The connection is made by Init.
func New(cfg config.InfluxConfig, log zerolog.Logger) *Backend {
	return &Backend{
		cfg:    cfg,
		log:    log,
		envIDs: make(map[uint]string),
	}
}

// IsValid reports whether points go to the server rather than the backup file.
func (b *Backend) IsValid() bool {
	return b.isValid
}

// Init establishes a connection to InfluxDB, falling back to the backup file.
func (b *Backend) Init() error {
	b.client = influxdb2.NewClientWithOptions(
		b.cfg.URL(),
		b.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(2500).
			SetFlushInterval(1000),
	)

	// validate client connection health
	ctx, cancel := context.WithTimeout(context.Background(), PingTimeout)
	running, err := b.client.Ping(ctx)
	cancel()

	if err != nil || !running {
		b.isValid = false
		b.log.Info().Str("backupPath", b.cfg.BackupPath).
			Msg("Failed to initialize InfluxDB client, writing to backup file")
		return b.openBackup()
	}

	if err := b.setupOrganizationAndBucket(); err != nil {
		return err
	}
	b.isValid = true
	b.createWriter()
	b.log.Info().Msg("InfluxDB client initialized")
	return nil
}

func (b *Backend) openBackup() error {
	if b.cfg.BackupPath == "" {
		return errors.New("influxDB unreachable and no backup path configured")
	}
	if err := os.MkdirAll(filepath.Dir(b.cfg.BackupPath), 0755); err != nil {
		return fmt.Errorf("error creating backup directory: %w", err)
	}
	file, err := os.OpenFile(b.cfg.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	b.backupFile = file
	b.backupWriter = gzip.NewWriter(file)
	return nil
}

func (b *Backend) setupOrganizationAndBucket() error {
	ctx := context.Background()
	orgName := b.cfg.Org

	// ensure org exists
	org, err := b.client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		b.log.Info().Str("org", orgName).Msg("Organization not found, creating")
		org, err = b.client.OrganizationsAPI().CreateOrganizationWithName(ctx, orgName)
		if err != nil {
			b.log.Error().Err(err).Str("org", orgName).Msg("Error creating organization")
			return err
		}
	}

	// ensure bucket exists with retention
	if _, err = b.client.BucketsAPI().FindBucketByName(ctx, b.cfg.Bucket); err != nil {
		b.log.Info().Str("bucket", b.cfg.Bucket).Msg("Bucket not found, creating")

		rule := domain.RetentionRuleTypeExpire
		_, err = b.client.BucketsAPI().CreateBucketWithName(ctx, org, b.cfg.Bucket, domain.RetentionRule{
			Type:         &rule,
			EverySeconds: RetentionSeconds,
		})
		if err != nil {
			b.log.Error().Err(err).Str("bucket", b.cfg.Bucket).Msg("Error creating bucket")
			return err
		}
	}

	return nil
}

func (b *Backend) createWriter() {
	b.writer = b.client.WriteAPI(b.cfg.Org, b.cfg.Bucket)

	errorsCh := b.writer.Errors()
	go func() {
		for writeErr := range errorsCh {
			b.log.Error().Err(writeErr).Str("bucket", b.cfg.Bucket).
				Msg("Error sending data to InfluxDB")
		}
	}()
}

// Close flushes pending points and releases the client or backup file.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	var err error
	if b.writer != nil {
		b.writer.Flush()
	}
	if b.client != nil {
		b.client.Close()
	}
	if b.backupWriter != nil {
		err = errors.Join(err, b.backupWriter.Close())
	}
	if b.backupFile != nil {
		err = errors.Join(err, b.backupFile.Close())
	}
	return err
}

// StartEpisode assigns a sequential episode ID and remembers its env tag.
func (b *Backend) StartEpisode(e *core.Episode) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.idCounter++
	e.ID = b.idCounter
	b.envIDs[e.ID] = e.EnvID
	return nil
}

// RecordStep writes one step point.
func (b *Backend) RecordStep(s *core.StepRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	envID, ok := b.envIDs[s.EpisodeID]
	if !ok {
		return fmt.Errorf("episode %d not started", s.EpisodeID)
	}
	return b.writePoint(StepPoint(envID, s))
}

// EndEpisode writes the episode summary point.
func (b *Backend) EndEpisode(e *core.Episode) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.envIDs[e.ID]; !ok {
		return fmt.Errorf("episode %d not started", e.ID)
	}
	delete(b.envIDs, e.ID)
	return b.writePoint(EpisodePoint(e))
}

// StepPoint builds the point recorded for a step.
func StepPoint(envID string, s *core.StepRecord) *influxdb2_write.Point {
	pos := s.Observation.Position()
	phi, theta, psi := s.Observation.Attitude()
	p := influxdb2_write.NewPointWithMeasurement(MeasurementStep).
		AddTag("env", envID).
		AddTag("episode", strconv.FormatUint(uint64(s.EpisodeID), 10)).
		AddField("step", int64(s.Step)).
		AddField("north", pos.X).
		AddField("east", pos.Y).
		AddField("alt", pos.Z).
		AddField("mach", s.Observation[core.IdxMach]).
		AddField("phi", phi).
		AddField("theta", theta).
		AddField("psi", psi).
		AddField("distance", core.Distance(pos, s.Goal)).
		AddField("reward", s.Reward).
		AddField("done", s.Done).
		SetTime(s.Time)
	if s.Reason != core.ReasonNone {
		p.AddField("reason", string(s.Reason))
	}
	return p
}

// EpisodePoint builds the summary point recorded when an episode ends.
func EpisodePoint(e *core.Episode) *influxdb2_write.Point {
	return influxdb2_write.NewPointWithMeasurement(MeasurementEpisode).
		AddTag("env", e.EnvID).
		AddTag("reason", string(e.Reason)).
		AddField("episode", int64(e.ID)).
		AddField("steps", int64(e.Steps)).
		AddField("totalReward", e.TotalReward).
		AddField("durationSeconds", e.EndTime.Sub(e.StartTime).Seconds()).
		SetTime(e.EndTime)
}

// writePoint writes a point to InfluxDB or the backup file.
func (b *Backend) writePoint(point *influxdb2_write.Point) error {
	if b.closed {
		return errors.New("influx backend closed")
	}
	if b.isValid {
		b.writer.WritePoint(point)
		return nil
	}
	if b.backupWriter == nil {
		return fmt.Errorf("influxDB client not initialized and backup writer not available")
	}

	lineProtocol := influxdb2_write.PointToLineProtocol(point, time.Duration(1*time.Nanosecond))
	lineProtocol = strings.TrimSuffix(lineProtocol, "\n")
	if _, err := b.backupWriter.Write([]byte(lineProtocol + "\n")); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}
