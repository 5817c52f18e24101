package loader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/go-co-op/gocron/v2"
	"github.com/tevino/abool/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DefaultPollInterval is how often SQL.Watch checks for changes.
const DefaultPollInterval = 2 * time.Second

// Template is a stored template source.
type Template struct {
	ID       int64  `gorm:"primaryKey"`
	Path     string `gorm:"uniqueIndex:idx_template_path"`
	Content  string
	Modified int64 `gorm:"index:idx_template_modified"` // unix nanoseconds
}

func (Template) TableName() string {
	return "templates"
}

// SQL is a Loader reading templates from a database table.
type SQL struct {
	DB           *gorm.DB
	PollInterval time.Duration // for Watch; defaults to DefaultPollInterval

	polling abool.AtomicBool
	since   int64
}

// OpenSQL opens the sqlite database at dsn and prepares its templates
// table.
func OpenSQL(dsn string) (*SQL, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	return NewSQL(db)
}

// NewSQL returns a loader using db, migrating its templates table.
func NewSQL(db *gorm.DB) (*SQL, error) {
	if err := db.AutoMigrate(&Template{}); err != nil {
		return nil, err
	}
	return &SQL{DB: db}, nil
}

// Put stores the source of the template at path, replacing any previous
// version.
func (s *SQL) Put(ctx context.Context, path, content string) error {
	var name = Clean(path)
	var tmpl Template
	err := s.DB.WithContext(ctx).Where("path = ?", name).First(&tmpl).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	tmpl.Path = name
	tmpl.Content = content
	tmpl.Modified = time.Now().UnixNano()
	return s.DB.WithContext(ctx).Save(&tmpl).Error
}

// Delete removes the template at path.
func (s *SQL) Delete(ctx context.Context, path string) error {
	return s.DB.WithContext(ctx).Where("path = ?", Clean(path)).Delete(&Template{}).Error
}

func (s *SQL) Load(ctx context.Context, path string) (Source, error) {
	var name = Clean(path)
	var tmpl Template
	switch err := s.DB.WithContext(ctx).Where("path = ?", name).First(&tmpl).Error; {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return Source{}, notFound(name)
	case err != nil:
		return Source{}, err
	}
	return Source{tmpl.Path, tmpl.Content}, nil
}

// Watch polls for changes every PollInterval.
func (s *SQL) Watch(onChange func(path string, err error)) (stop func() error, err error) {
	var interval = s.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return s.Poll(interval, onChange)
}

// Poll starts a job reporting the templates stored since the previous run,
// every interval.  Runs never overlap.
func (s *SQL) Poll(interval time.Duration, onChange func(path string, err error)) (stop func() error, err error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	s.since = time.Now().UnixNano()
	_, err = scheduler.NewJob(gocron.DurationJob(interval), gocron.NewTask(func() {
		s.poll(context.Background(), onChange)
	}))
	if err != nil {
		scheduler.Shutdown()
		return nil, fmt.Errorf("poll templates: %w", err)
	}
	scheduler.Start()
	return scheduler.Shutdown, nil
}

// poll reports the templates modified since the last call.
func (s *SQL) poll(ctx context.Context, onChange func(path string, err error)) {
	if !s.polling.SetToIf(false, true) {
		return
	}
	defer s.polling.UnSet()

	var changed []Template
	err := s.DB.WithContext(ctx).
		Select("path", "modified").
		Where("modified > ?", s.since).
		Order("modified").
		Find(&changed).Error
	if err != nil {
		onChange("", err)
		return
	}
	for _, tmpl := range changed {
		s.since = tmpl.Modified
		onChange(tmpl.Path, nil)
	}
}

var (
	_ Loader  = (*SQL)(nil)
	_ Watcher = (*SQL)(nil)
)
