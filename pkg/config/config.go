package config

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/charlie0129/rtdconv/pkg/store"
)

const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

type Config interface {
	Listen() string
	ReferenceResistance() float64
	Degree() int
	MaxFiles() int
	MaxUploadBytes() int64
	OutputDir() string
	Storage() string
	S3() store.S3Options
	// RetentionSchedule is a cron expression for pruning outputs. Empty
	// disables pruning.
	RetentionSchedule() string
	RetentionMaxAge() time.Duration

	SetReferenceResistance(float64)
	SetDegree(int)

	LogrusFields() logrus.Fields

	// Load reads the configuration from the source.
	Load() error
	// Save saves the configuration to the source.
	Save() error
}
