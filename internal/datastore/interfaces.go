// Package datastore is the recording catalog: one row per saved file, kept
// in SQLite or MySQL through gorm.
package datastore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/DA1F/RoAnalyzer/internal/conf"
	"github.com/DA1F/RoAnalyzer/internal/errors"
	"github.com/DA1F/RoAnalyzer/internal/logger"
	"github.com/DA1F/RoAnalyzer/internal/observability/metrics"
)

// Interface is the catalog as used by the recorder and the API.
type Interface interface {
	Open() error
	Close() error
	SaveRecording(ctx context.Context, r *Recording) error
	GetRecording(ctx context.Context, id string) (*Recording, error)
	ListRecordings(ctx context.Context, opts ListOptions) ([]Recording, int64, error)
	DeleteRecordingsByPath(ctx context.Context, paths []string) (int64, error)
}

// DataStore holds the connection and the operations shared by both backends.
type DataStore struct {
	DB      *gorm.DB
	Logger  logger.Logger
	metrics metrics.Recorder
}

// Option customizes a store.
type Option func(*DataStore)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(ds *DataStore) { ds.Logger = l }
}

// WithMetrics reports operations to r. A *metrics.DatastoreMetrics also gets
// the catalog size.
func WithMetrics(r metrics.Recorder) Option {
	return func(ds *DataStore) { ds.metrics = r }
}

// New returns an unopened store for settings.Type.
func New(settings *conf.DatabaseSettings, opts ...Option) (Interface, error) {
	ds := DataStore{metrics: metrics.NoOpRecorder{}}
	for _, opt := range opts {
		opt(&ds)
	}
	if ds.Logger == nil {
		ds.Logger = GetLogger()
	}

	switch settings.Type {
	case "", "sqlite":
		return &SQLiteStore{DataStore: ds, Path: settings.Path}, nil
	case "mysql":
		return &MySQLStore{DataStore: ds, Settings: settings.MySQL}, nil
	default:
		return nil, errors.Newf("unsupported database type %q", settings.Type).
			Component(componentName).
			Category(errors.CategoryConfiguration).
			Build()
	}
}

type recordingCounter interface {
	UpdateRecordingCount(n int64)
}

// observe reports the outcome of one operation.
func (ds *DataStore) observe(operation string, started time.Time, err error) {
	ds.metrics.RecordDuration(operation, time.Since(started).Seconds())
	if err != nil && !errors.IsCategory(err, errors.CategoryNotFound) {
		ds.metrics.RecordOperation(operation, metrics.StatusError)
		ds.metrics.RecordError(operation, string(errors.CategoryOf(err)))
		return
	}
	ds.metrics.RecordOperation(operation, metrics.StatusSuccess)
}

func (ds *DataStore) refreshCount(ctx context.Context) {
	c, ok := ds.metrics.(recordingCounter)
	if !ok {
		return
	}
	var n int64
	if err := ds.DB.WithContext(ctx).Model(&Recording{}).Count(&n).Error; err != nil {
		ds.Logger.Debug("failed to count recordings", logger.Error(err))
		return
	}
	c.UpdateRecordingCount(n)
}

// SaveRecording inserts r, assigning an ID and creation time when missing.
func (ds *DataStore) SaveRecording(ctx context.Context, r *Recording) (err error) {
	started := time.Now()
	defer func() { ds.observe(metrics.OpCatalogInsert, started, err) }()

	if ds.DB == nil {
		return notOpen("save_recording")
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}

	if err := ds.DB.WithContext(ctx).Create(r).Error; err != nil {
		return dbError(err, "save_recording")
	}
	ds.refreshCount(ctx)

	ds.Logger.Debug("recording cataloged",
		logger.String("id", r.ID),
		logger.String("path", r.Path),
		logger.String("kind", r.Kind))
	return nil
}

// GetRecording loads one recording by ID.
func (ds *DataStore) GetRecording(ctx context.Context, id string) (_ *Recording, err error) {
	started := time.Now()
	defer func() { ds.observe(metrics.OpCatalogGet, started, err) }()

	if ds.DB == nil {
		return nil, notOpen("get_recording")
	}

	var r Recording
	if err := ds.DB.WithContext(ctx).Where("id = ?", id).First(&r).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(id)
		}
		return nil, dbError(err, "get_recording")
	}
	return &r, nil
}

// ListRecordings returns a page of recordings, newest first, and the total
// number matching the filters.
func (ds *DataStore) ListRecordings(ctx context.Context, opts ListOptions) (_ []Recording, _ int64, err error) {
	started := time.Now()
	defer func() { ds.observe(metrics.OpCatalogList, started, err) }()

	if ds.DB == nil {
		return nil, 0, notOpen("list_recordings")
	}

	q := ds.DB.WithContext(ctx).Model(&Recording{})
	if opts.Kind != "" {
		q = q.Where("kind = ?", opts.Kind)
	}
	if opts.Session != "" {
		q = q.Where("session = ?", opts.Session)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, dbError(err, "count_recordings")
	}

	limit := opts.Limit
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}

	var out []Recording
	err = q.Order("created_at DESC").Order("id").Limit(limit).Offset(max(opts.Offset, 0)).Find(&out).Error
	if err != nil {
		return nil, 0, dbError(err, "list_recordings")
	}
	return out, total, nil
}

// DeleteRecordingsByPath removes the catalog rows for files that were
// deleted from disk.
func (ds *DataStore) DeleteRecordingsByPath(ctx context.Context, paths []string) (_ int64, err error) {
	started := time.Now()
	defer func() { ds.observe(metrics.OpCatalogDelete, started, err) }()

	if ds.DB == nil {
		return 0, notOpen("delete_recordings")
	}
	if len(paths) == 0 {
		return 0, nil
	}

	res := ds.DB.WithContext(ctx).Where("path IN ?", paths).Delete(&Recording{})
	if res.Error != nil {
		return 0, dbError(res.Error, "delete_recordings")
	}
	ds.refreshCount(ctx)
	return res.RowsAffected, nil
}

// closeDB closes the underlying sql.DB.
func (ds *DataStore) closeDB(backend string) error {
	if ds.DB == nil {
		return notOpen("close")
	}
	sqlDB, err := ds.DB.DB()
	if err != nil {
		return dbError(err, "close")
	}
	if err := sqlDB.Close(); err != nil {
		return dbError(err, "close")
	}
	ds.Logger.Debug("database connection closed", logger.String("db_type", backend))
	return nil
}

// performAutoMigration creates or updates the catalog schema.
func performAutoMigration(db *gorm.DB, dbType string, log logger.Logger) error {
	started := time.Now()
	if err := db.AutoMigrate(&Recording{}); err != nil {
		return errors.New(err).
			Component(componentName).
			Category(errors.CategoryDatabase).
			Context("operation", "auto_migrate").
			Context("db_type", dbType).
			Build()
	}
	log.Debug("database migration completed",
		logger.String("db_type", dbType),
		logger.Duration("duration", time.Since(started)))
	return nil
}

func gormConfig(log logger.Logger) *gorm.Config {
	return &gorm.Config{Logger: newGormLogger(log.Module("gorm"), 200*time.Millisecond)}
}
