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

	"github.com/harborlab/shipsim/internal/config"
	"github.com/harborlab/shipsim/internal/risk"
	"github.com/harborlab/shipsim/pkg/core"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"
)

// Measurement names.
const (
	MeasurementRun     = "swarm_run"
	MeasurementArrival = "vessel_arrival"
)

// Manager handles InfluxDB connections and writes. When the server cannot be
// reached, points go to a gzip line-protocol backup file instead.
type Manager struct {
	Client       influxdb2.Client
	Writers      map[string]influxdb2_api.WriteAPI
	BackupWriter *gzip.Writer
	IsValid      bool
	BucketNames  []string
	Logger       zerolog.Logger

	cfg        config.InfluxConfig
	backupFile *os.File
	mu         sync.Mutex
}

// NewManager creates a new InfluxDB manager writing to cfg.Bucket.
func NewManager(cfg config.InfluxConfig, log zerolog.Logger) *Manager {
	return &Manager{
		Writers:     make(map[string]influxdb2_api.WriteAPI),
		BucketNames: []string{cfg.Bucket},
		Logger:      log,
		cfg:         cfg,
	}
}

// Init connects so the manager can serve as a run recorder.
func (m *Manager) Init() error {
	return m.Connect(context.Background())
}

// Connect establishes a connection to InfluxDB.
func (m *Manager) Connect(ctx context.Context) error {
	if !m.cfg.Enabled {
		return errors.New("influx.enabled is false")
	}

	m.Client = influxdb2.NewClientWithOptions(
		m.cfg.URL(),
		m.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(2500).
			SetFlushInterval(1000),
	)

	// validate client connection health
	running, err := m.Client.Ping(ctx)

	if err != nil || !running {
		m.IsValid = false
		if m.BackupWriter == nil {
			m.Logger.Info().Str("backupPath", m.cfg.Backup).
				Msg("Failed to initialize InfluxDB client, writing to backup file")

			if err := os.MkdirAll(filepath.Dir(m.cfg.Backup), 0755); err != nil {
				return fmt.Errorf("error creating backup dir: %w", err)
			}
			file, err := os.OpenFile(m.cfg.Backup, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
			if err != nil {
				return fmt.Errorf("error creating backup file: %v", err)
			}
			m.backupFile = file
			m.BackupWriter = gzip.NewWriter(file)
		}
	} else {
		m.IsValid = true
	}

	if m.IsValid {
		err = m.setupOrganizationAndBuckets(ctx)
		if err != nil {
			return err
		}
		m.CreateWriters()
		m.Logger.Info().Msg("InfluxDB client initialized")
	} else {
		m.Logger.Warn().Msg("InfluxDB client failed to initialize, using backup writer")
	}

	return nil
}

func (m *Manager) setupOrganizationAndBuckets(ctx context.Context) error {
	orgName := m.cfg.Org

	// ensure org exists
	_, err := m.Client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.Logger.Info().Str("org", orgName).Msg("Organization not found, creating")
		_, err = m.Client.OrganizationsAPI().CreateOrganizationWithName(ctx, orgName)
		if err != nil {
			m.Logger.Error().Err(err).Str("org", orgName).Msg("Error creating organization")
			return err
		}
	}

	influxOrg, err := m.Client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.Logger.Error().Err(err).Str("org", orgName).Msg("Error getting organization")
		return err
	}

	// ensure buckets exist with 90 day retention
	for _, bucket := range m.BucketNames {
		_, err = m.Client.BucketsAPI().FindBucketByName(ctx, bucket)
		if err != nil {
			m.Logger.Info().Str("bucket", bucket).Msg("Bucket not found, creating")

			rule := domain.RetentionRuleTypeExpire
			_, err = m.Client.BucketsAPI().CreateBucketWithName(ctx, influxOrg, bucket, domain.RetentionRule{
				Type:         &rule,
				EverySeconds: 60 * 60 * 24 * 90,
			})
			if err != nil {
				m.Logger.Error().Err(err).Str("bucket", bucket).Msg("Error creating bucket")
				return err
			}
		}
	}

	return nil
}

// CreateWriters creates write APIs for all configured buckets.
func (m *Manager) CreateWriters() {
	for _, bucket := range m.BucketNames {
		m.Writers[bucket] = m.Client.WriteAPI(m.cfg.Org, bucket)

		errorsCh := m.Writers[bucket].Errors()
		go func(bucketName string, errorsCh <-chan error) {
			for writeErr := range errorsCh {
				m.Logger.Error().Err(writeErr).Str("bucket", bucketName).
					Msg("Error sending data to InfluxDB")
			}
		}(bucket, errorsCh)
	}

	m.Logger.Debug().Msg("InfluxDB writers initialized")
}

// WritePoint writes a point to InfluxDB or the backup file.
func (m *Manager) WritePoint(bucket string, point *influxdb2_write.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.IsValid {
		w, ok := m.Writers[bucket]
		if !ok {
			return fmt.Errorf("influxDB bucket '%s' not registered", bucket)
		}
		w.WritePoint(point)
		return nil
	}

	if m.BackupWriter == nil {
		return fmt.Errorf("influxDB client not initialized and backup writer not available")
	}

	lineProtocol := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	if _, err := m.BackupWriter.Write([]byte(lineProtocol + "\n")); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %s", err)
	}
	return nil
}

// RecordRun writes the summary and arrival points of a finished run to the
// configured bucket.
func (m *Manager) RecordRun(ctx context.Context, run *core.RunRecord) error {
	points, err := RunPoints(run)
	if err != nil {
		return err
	}
	for _, p := range points {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := m.WritePoint(m.cfg.Bucket, p); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes pending writes and closes the client and backup file.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, w := range m.Writers {
		w.Flush()
	}
	if m.Client != nil {
		m.Client.Close()
		m.Client = nil
	}
	var errs []error
	if m.BackupWriter != nil {
		errs = append(errs, m.BackupWriter.Close())
		m.BackupWriter = nil
	}
	if m.backupFile != nil {
		errs = append(errs, m.backupFile.Close())
		m.backupFile = nil
	}
	m.IsValid = false
	return errors.Join(errs...)
}

// RunPoints builds one swarm_run point and one vessel_arrival point per
// vessel that reached its destination. Points are stamped with the run start.
func RunPoints(run *core.RunRecord) ([]*influxdb2_write.Point, error) {
	if run == nil || run.Record == nil {
		return nil, fmt.Errorf("run has no record")
	}
	rec := run.Record
	cfg := run.Config

	tags := map[string]string{
		"run":     run.ID,
		"terrain": string(cfg.Terrain),
		"weather": string(cfg.Weather),
		"class":   string(cfg.Class),
	}
	if run.Label != "" {
		tags["label"] = run.Label
	}

	var pairHits, terrainHits int
	for _, e := range rec.Events {
		switch e.Kind {
		case core.EventPairCollision:
			pairHits++
		case core.EventTerrainCollision:
			terrainHits++
		}
	}

	fields := map[string]interface{}{
		"ships":              rec.Ships(),
		"steps":              len(rec.Trajectories) - 1,
		"speed":              cfg.Speed,
		"seed":               run.Seed,
		"pair_collisions":    pairHits,
		"terrain_collisions": terrainHits,
	}

	points := make([]*influxdb2_write.Point, 0, rec.Ships()+1)
	arrived := 0
	var total float64
	for i := range rec.EndSteps {
		end, ok := rec.EndTime(i)
		if !ok {
			continue
		}
		arrived++
		total += end
		points = append(points, influxdb2_write.NewPoint(MeasurementArrival,
			map[string]string{"run": run.ID, "vessel": strconv.Itoa(i)},
			map[string]interface{}{"end_step": rec.EndSteps[i], "end_time": end},
			run.StartedAt))
	}
	fields["arrived"] = arrived
	if arrived > 0 {
		fields["mean_arrival_time"] = total / float64(arrived)
	}
	if a, err := risk.ForConfig(cfg); err == nil {
		fields["risk_probability"] = a.Probability
		fields["risk_impact"] = a.Impact
	}

	summary := influxdb2_write.NewPoint(MeasurementRun, tags, fields, run.StartedAt)
	return append([]*influxdb2_write.Point{summary}, points...), nil
}

// ParseMetric parses a metric sent through the command surface and returns a
// bucket name and point.
//
// Argument layout:
//
//	0 = bucket name
//	1 = measurement name
//	"tag::<name>::<value>"
//	"field::<string|int|float>::<name>::<value>"
func ParseMetric(data []string, clean func(string) string) (
	bucket string,
	point *influxdb2_write.Point,
	err error,
) {
	if len(data) < 2 {
		return "", nil, fmt.Errorf("metric needs bucket and measurement, got %d args", len(data))
	}
	for i, v := range data {
		data[i] = clean(v)
	}

	bucket = data[0]
	point = influxdb2_write.NewPointWithMeasurement(data[1])

	for _, tag := range data[2:] {
		if !strings.HasPrefix(tag, "tag::") {
			continue
		}
		parts := strings.Split(tag, "::")
		if len(parts) >= 3 {
			point.AddTag(parts[1], parts[2])
		}
	}

	for _, field := range data[2:] {
		if !strings.HasPrefix(field, "field::") {
			continue
		}
		parts := strings.Split(field, "::")
		if len(parts) < 4 {
			continue
		}
		fieldType, fieldName, fieldValue := parts[1], parts[2], parts[3]

		switch fieldType {
		case "string":
			point.AddField(fieldName, fieldValue)
		case "int":
			intVal, err := strconv.Atoi(fieldValue)
			if err != nil {
				return "", nil, fmt.Errorf("error converting field value '%s' to int: %w", fieldValue, err)
			}
			point.AddField(fieldName, intVal)
		case "float":
			floatVal, err := strconv.ParseFloat(fieldValue, 64)
			if err != nil {
				return "", nil, fmt.Errorf("error converting field value '%s' to float: %w", fieldValue, err)
			}
			point.AddField(fieldName, floatVal)
		}
	}

	return bucket, point, nil
}
