package config

import (
	"encoding/json"
	"io"
	"math"
	"os"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/rtdconv/pkg/polyfit"
	"github.com/charlie0129/rtdconv/pkg/retention"
	"github.com/charlie0129/rtdconv/pkg/rtd"
	"github.com/charlie0129/rtdconv/pkg/store"
	"github.com/charlie0129/rtdconv/pkg/utils/ptr"
)

var (
	defaultFileConfig = &RawFileConfig{
		Listen:              ptr.To("127.0.0.1:5000"),
		ReferenceResistance: ptr.To(rtd.DefaultR0),
		Degree:              ptr.To(polyfit.DefaultDegree),
		// The upload form only ever took three files at a time.
		MaxFiles:       ptr.To(3),
		MaxUploadBytes: ptr.To(int64(16 << 20)),
		OutputDir:      ptr.To("uploads"),
		Storage:        ptr.To(StorageLocal),
		// Pruning is opt-in. Outputs older than a month go once it is on.
		RetentionSchedule: ptr.To(""),
		RetentionMaxAge:   ptr.To("720h"),
	}
)

var _ Config = &File{}

type File struct {
	c        *RawFileConfig
	mu       *sync.RWMutex
	filepath string
}

func NewFile(configPath string) (*File, error) {
	f := &File{
		filepath: configPath,
		mu:       &sync.RWMutex{},
	}
	err := f.Load()
	if err != nil {
		return nil, err
	}

	return f, nil
}

func NewFileFromConfig(c *RawFileConfig, configPath string) *File {
	if c == nil {
		c = &RawFileConfig{}
	}

	return &File{
		c:        c,
		mu:       &sync.RWMutex{},
		filepath: configPath,
	}
}

type RawFileConfig struct {
	Listen              *string          `json:"listen,omitempty"`
	ReferenceResistance *float64         `json:"referenceResistance,omitempty"`
	Degree              *int             `json:"degree,omitempty"`
	MaxFiles            *int             `json:"maxFiles,omitempty"`
	MaxUploadBytes      *int64           `json:"maxUploadBytes,omitempty"`
	OutputDir           *string          `json:"outputDir,omitempty"`
	Storage             *string          `json:"storage,omitempty"`
	S3                  *store.S3Options `json:"s3,omitempty"`
	RetentionSchedule   *string          `json:"retentionSchedule,omitempty"`
	RetentionMaxAge     *string          `json:"retentionMaxAge,omitempty"`
}

// NewRawFileConfigFromConfig returns the effective values of c, defaults
// included. Credentials are never copied out.
func NewRawFileConfigFromConfig(c Config) (*RawFileConfig, error) {
	if c == nil {
		return nil, pkgerrors.New("config is nil")
	}

	raw := &RawFileConfig{
		Listen:              ptr.To(c.Listen()),
		ReferenceResistance: ptr.To(c.ReferenceResistance()),
		Degree:              ptr.To(c.Degree()),
		MaxFiles:            ptr.To(c.MaxFiles()),
		MaxUploadBytes:      ptr.To(c.MaxUploadBytes()),
		OutputDir:           ptr.To(c.OutputDir()),
		Storage:             ptr.To(c.Storage()),
		RetentionSchedule:   ptr.To(c.RetentionSchedule()),
		RetentionMaxAge:     ptr.To(c.RetentionMaxAge().String()),
	}
	if c.Storage() == StorageS3 {
		s3 := c.S3()
		s3.AccessKey = ""
		s3.SecretKey = ""
		raw.S3 = &s3
	}

	return raw, nil
}

// ValidateReferenceResistance reports whether r is usable as R0.
func ValidateReferenceResistance(r float64) error {
	if math.IsNaN(r) || math.IsInf(r, 0) || r <= rtd.MinResistance {
		return pkgerrors.Errorf("reference resistance must be a finite value above %g Ω, got %g", rtd.MinResistance, r)
	}
	return nil
}

// ValidateDegree reports whether d is usable as a fit degree.
func ValidateDegree(d int) error {
	if d < 1 || d > 15 {
		return pkgerrors.Errorf("degree must be between 1 and 15, got %d", d)
	}
	return nil
}

func get[T any](f *File, field func(*RawFileConfig) *T, def *T) T {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if v := field(f.raw()); v != nil {
		return *v
	}
	return *def
}

func (f *File) raw() *RawFileConfig {
	if f.c == nil {
		panic("config is nil")
	}
	return f.c
}

func (f *File) Listen() string {
	return get(f, func(c *RawFileConfig) *string { return c.Listen }, defaultFileConfig.Listen)
}

func (f *File) ReferenceResistance() float64 {
	return get(f, func(c *RawFileConfig) *float64 { return c.ReferenceResistance }, defaultFileConfig.ReferenceResistance)
}

func (f *File) Degree() int {
	return get(f, func(c *RawFileConfig) *int { return c.Degree }, defaultFileConfig.Degree)
}

func (f *File) MaxFiles() int {
	return get(f, func(c *RawFileConfig) *int { return c.MaxFiles }, defaultFileConfig.MaxFiles)
}

func (f *File) MaxUploadBytes() int64 {
	return get(f, func(c *RawFileConfig) *int64 { return c.MaxUploadBytes }, defaultFileConfig.MaxUploadBytes)
}

func (f *File) OutputDir() string {
	return get(f, func(c *RawFileConfig) *string { return c.OutputDir }, defaultFileConfig.OutputDir)
}

func (f *File) Storage() string {
	return get(f, func(c *RawFileConfig) *string { return c.Storage }, defaultFileConfig.Storage)
}

func (f *File) S3() store.S3Options {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.raw().S3 == nil {
		return store.S3Options{}
	}
	return *f.c.S3
}

func (f *File) RetentionSchedule() string {
	return get(f, func(c *RawFileConfig) *string { return c.RetentionSchedule }, defaultFileConfig.RetentionSchedule)
}

// RetentionMaxAge is validated on Load, so a parse failure here only comes
// from a config built in code and falls back to the default.
func (f *File) RetentionMaxAge() time.Duration {
	s := get(f, func(c *RawFileConfig) *string { return c.RetentionMaxAge }, defaultFileConfig.RetentionMaxAge)
	d, err := time.ParseDuration(s)
	if err != nil {
		d, _ = time.ParseDuration(*defaultFileConfig.RetentionMaxAge)
	}
	return d
}

func (f *File) SetReferenceResistance(r float64) {
	if err := ValidateReferenceResistance(r); err != nil {
		panic(err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.raw().ReferenceResistance = &r
}

func (f *File) SetDegree(d int) {
	if err := ValidateDegree(d); err != nil {
		panic(err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.raw().Degree = &d
}

func (f *File) Load() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fp, err := os.Open(f.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			// Missing file means all defaults. Do not make f.c a nil.
			f.c = &RawFileConfig{}
			return nil
		}
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	b, err := io.ReadAll(fp)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to read file %s", f.filepath)
	}

	if strings.TrimSpace(string(b)) == "" {
		f.c = &RawFileConfig{}
		return nil
	}

	conf := RawFileConfig{}
	err = json.Unmarshal(b, &conf)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to unmarshal config from file %s", f.filepath)
	}
	if conf.ReferenceResistance != nil {
		if err := ValidateReferenceResistance(*conf.ReferenceResistance); err != nil {
			return pkgerrors.Wrapf(err, "invalid config file %s", f.filepath)
		}
	}
	if conf.Degree != nil {
		if err := ValidateDegree(*conf.Degree); err != nil {
			return pkgerrors.Wrapf(err, "invalid config file %s", f.filepath)
		}
	}
	if conf.RetentionSchedule != nil && *conf.RetentionSchedule != "" {
		if err := retention.ValidateSchedule(*conf.RetentionSchedule); err != nil {
			return pkgerrors.Wrapf(err, "invalid config file %s", f.filepath)
		}
	}
	if conf.RetentionMaxAge != nil {
		if _, err := time.ParseDuration(*conf.RetentionMaxAge); err != nil {
			return pkgerrors.Wrapf(err, "invalid config file %s: retentionMaxAge", f.filepath)
		}
	}
	if conf.Storage != nil && *conf.Storage != StorageLocal && *conf.Storage != StorageS3 {
		return pkgerrors.Errorf("invalid config file %s: unknown storage %q", f.filepath, *conf.Storage)
	}
	f.c = &conf

	return nil
}

func (f *File) Save() error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c == nil {
		return pkgerrors.New("config is nil")
	}

	fp, err := os.OpenFile(f.filepath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	enc := json.NewEncoder(fp)
	enc.SetIndent("", "  ")
	err = enc.Encode(f.c)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to encode config to file %s", f.filepath)
	}

	return nil
}

func (f *File) LogrusFields() logrus.Fields {
	return logrus.Fields{
		"listen":              f.Listen(),
		"referenceResistance": f.ReferenceResistance(),
		"degree":              f.Degree(),
		"maxFiles":            f.MaxFiles(),
		"maxUploadBytes":      f.MaxUploadBytes(),
		"outputDir":           f.OutputDir(),
		"storage":             f.Storage(),
		"retentionSchedule":   f.RetentionSchedule(),
		"retentionMaxAge":     f.RetentionMaxAge().String(),
	}
}
