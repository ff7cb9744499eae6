package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/spf13/viper"
)

const EnvPrefix = "GUESTS"

type ExemptionMode string

const (
	// ExemptionModeList treats exemption.spec as a delimited list of account ids.
	ExemptionModeList ExemptionMode = "list"
	// ExemptionModeGroup expands a single group's transitive membership up front.
	ExemptionModeGroup ExemptionMode = "group"
	// ExemptionModeCheck asks the directory about each account against a
	// delimited list of group ids.
	ExemptionModeCheck ExemptionMode = "check"
)

// DefaultFields is the user projection requested from the directory.
var DefaultFields = []string{
	"id",
	"displayName",
	"userPrincipalName",
	"accountEnabled",
	"userType",
	"externalUserState",
	"createdDateTime",
	"signInSessionsValidFromDateTime",
	"signInActivity",
}

type Settings struct {
	Directory DirectorySettings `mapstructure:"directory"`
	Policy    PolicySettings    `mapstructure:"policy"`
	Exemption ExemptionSettings `mapstructure:"exemption"`
	Query     QuerySettings     `mapstructure:"query"`
	Store     StoreSettings     `mapstructure:"store"`
	Schedule  ScheduleSettings  `mapstructure:"schedule"`
	Server    ServerSettings    `mapstructure:"server"`
	// Workers bounds the number of classification runs in flight.
	Workers int `mapstructure:"workers"`
}

type DirectorySettings struct {
	Cloud             string        `mapstructure:"cloud"`
	Version           string        `mapstructure:"version"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
}

type Baseline struct {
	StaleDays       int `mapstructure:"stale_days"`
	RemovalDays     int `mapstructure:"removal_days"`
	InviteStaleDays int `mapstructure:"invite_stale_days"`
}

type PolicySettings struct {
	StaleDays       int      `mapstructure:"stale_days"`
	RemovalDays     int      `mapstructure:"removal_days"`
	InviteStaleDays int      `mapstructure:"invite_stale_days"`
	Baseline        Baseline `mapstructure:"baseline"`
}

type ExemptionSettings struct {
	Mode      ExemptionMode `mapstructure:"mode"`
	Spec      string        `mapstructure:"spec"`
	Delimiter string        `mapstructure:"delimiter"`
}

type QuerySettings struct {
	PageSize int      `mapstructure:"page_size"`
	Fields   []string `mapstructure:"fields"`
}

type StoreSettings struct {
	Path string `mapstructure:"path"`
}

// ScheduleSettings drives the periodic classification of the web server. A
// zero interval disables it.
type ScheduleSettings struct {
	Interval time.Duration `mapstructure:"interval"`
	Kinds    []string      `mapstructure:"kinds"`
}

// ServerSettings tunes the web API. A zero request timeout leaves requests
// bounded only by the directory client.
type ServerSettings struct {
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("directory.cloud", "com")
	v.SetDefault("directory.version", "beta")
	v.SetDefault("directory.max_attempts", 10)
	v.SetDefault("directory.timeout", 2*time.Minute)
	v.SetDefault("directory.requests_per_second", 20.0)

	// Idle time before disablement, disablement to deletion grace of 14
	// days on top, and the age of unaccepted invites.
	v.SetDefault("policy.stale_days", 60)
	v.SetDefault("policy.removal_days", 74)
	v.SetDefault("policy.invite_stale_days", 90)
	v.SetDefault("policy.baseline.stale_days", 60)
	v.SetDefault("policy.baseline.removal_days", 74)
	v.SetDefault("policy.baseline.invite_stale_days", 90)

	v.SetDefault("exemption.mode", string(ExemptionModeGroup))
	v.SetDefault("exemption.spec", "")
	v.SetDefault("exemption.delimiter", ";")

	v.SetDefault("query.page_size", 999)
	v.SetDefault("query.fields", DefaultFields)

	v.SetDefault("store.path", "guests.db")
	v.SetDefault("schedule.interval", time.Duration(0))
	v.SetDefault("schedule.kinds", []string{"disable", "inactive", "invites"})
	v.SetDefault("server.request_timeout", time.Duration(0))
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("workers", 10)
}

// LoadSettings merges defaults, the optional config file at path and
// GUESTS_* environment overrides, then validates the result.
func LoadSettings(path string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return &s, nil
}

func (s Settings) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Directory),
		validation.Field(&s.Policy),
		validation.Field(&s.Exemption),
		validation.Field(&s.Query),
		validation.Field(&s.Schedule),
		validation.Field(&s.Server),
		validation.Field(&s.Workers, validation.Required, validation.Min(1), validation.Max(100)),
	)
}

func (d DirectorySettings) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Cloud, validation.Required, validation.In(CloudPublic, CloudUSGov, CloudChina)),
		validation.Field(&d.Version, validation.Required),
		validation.Field(&d.MaxAttempts, validation.Required, validation.Min(1)),
	)
}

// Validate only checks the baseline. Configured ranges below it are clamped
// by NewPolicy, so the baseline alone keeps thresholds in the past.
func (p PolicySettings) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Baseline),
	)
}

func (b Baseline) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.StaleDays, validation.Required, validation.Min(1)),
		validation.Field(&b.RemovalDays, validation.Required, validation.Min(1)),
		validation.Field(&b.InviteStaleDays, validation.Required, validation.Min(1)),
	)
}

func (e ExemptionSettings) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Mode, validation.Required,
			validation.In(ExemptionModeList, ExemptionModeGroup, ExemptionModeCheck)),
	)
}

func (q QuerySettings) Validate() error {
	return validation.ValidateStruct(&q,
		validation.Field(&q.PageSize, validation.Required, validation.Min(1), validation.Max(999)),
		validation.Field(&q.Fields, validation.Required),
	)
}

func (sc ScheduleSettings) Validate() error {
	return validation.ValidateStruct(&sc,
		validation.Field(&sc.Interval, validation.Min(time.Duration(0))),
		validation.Field(&sc.Kinds, validation.By(knownKinds)),
	)
}

func (sv ServerSettings) Validate() error {
	return validation.ValidateStruct(&sv,
		validation.Field(&sv.RequestTimeout, validation.Min(time.Duration(0))),
		validation.Field(&sv.ShutdownTimeout, validation.Min(time.Duration(0))),
	)
}

func knownKinds(value interface{}) error {
	kinds, _ := value.([]string)
	for _, k := range kinds {
		if err := validation.Validate(k, validation.In("disable", "inactive", "invites")); err != nil {
			return fmt.Errorf("%q: %w", k, err)
		}
	}
	return nil
}

// BuildPolicy derives the immutable lifecycle policy from the settings.
func (s Settings) BuildPolicy(ctx context.Context) Policy {
	return NewPolicy(ctx, s.Policy, s.Directory.MaxAttempts, s.Query.Fields, s.Exemption)
}
