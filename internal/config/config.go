// File path: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Default parent folder identifiers for container records that have no
// curated parent in Cortex yet.
const (
	DefaultWorkParentID         = "PH1QHU6"
	DefaultPrintedMusicParentID = "PH1N31F"
	DefaultBusinessRecordParent = "PH1N31H"
	DefaultDataTablePath        = "/API/DataTable/v2.2/"
	DefaultRequestTimeout       = 90 * time.Second
	DefaultRetryAttempts        = 2
	DefaultRetryDelay           = 2 * time.Second
)

// Config carries every externally supplied value for one run. It is
// constructed once at process start and passed by reference; nothing in
// the pipeline reads the environment after Load returns.
type Config struct {
	Login    string
	Password string

	BaseURL       string
	DataTablePath string
	SolrURL       string

	// Directory holds the prep CSV tables produced by the transform stage.
	Directory     string
	CarlosXMLPath string
	DBTextXMLPath string
	LogsPath      string
	ReportPath    string

	WorkParentID         string
	PrintedMusicParentID string
	BusinessRecordParent string

	RequestTimeout time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration
}

// Load reads the optional .env file and the environment, returning the
// fully defaulted configuration for a run.
func Load(envPath string) (*Config, error) {
	if strings.TrimSpace(envPath) != "" {
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", envPath, err)
		}
	} else {
		// Best effort: a missing .env simply means the environment is
		// already populated.
		_ = godotenv.Load()
	}

	cfg := &Config{
		Login:                lookup("login"),
		Password:             lookup("password"),
		BaseURL:              strings.TrimRight(lookup("baseurl"), "/"),
		DataTablePath:        withDefault(lookup("datatable"), DefaultDataTablePath),
		SolrURL:              lookup("solr_url"),
		Directory:            lookup("directory"),
		CarlosXMLPath:        lookup("carlos_xml_path"),
		DBTextXMLPath:        lookup("dbtext_xml_path"),
		LogsPath:             lookup("logs"),
		ReportPath:           lookup("report_db"),
		WorkParentID:         withDefault(lookup("work_parent_id"), DefaultWorkParentID),
		PrintedMusicParentID: withDefault(lookup("pm_parent_id"), DefaultPrintedMusicParentID),
		BusinessRecordParent: withDefault(lookup("br_parent_id"), DefaultBusinessRecordParent),
		RequestTimeout:       durationEnv("request_timeout", DefaultRequestTimeout),
		RetryAttempts:        intEnv("retry_attempts", DefaultRetryAttempts),
		RetryDelay:           durationEnv("retry_delay", DefaultRetryDelay),
	}
	if cfg.ReportPath == "" && cfg.LogsPath != "" {
		cfg.ReportPath = filepath.Join(cfg.LogsPath, "cortex-sync.db")
	}
	return cfg, nil
}

// Validate reports the first missing value required before any remote
// mutation can be attempted.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config: nil configuration")
	}
	switch {
	case c.Login == "":
		return errors.New("config: login is required")
	case c.Password == "":
		return errors.New("config: password is required")
	case c.BaseURL == "":
		return errors.New("config: baseurl is required")
	}
	return nil
}

// ProgramXML returns the path of the Carlos program delta feed.
func (c *Config) ProgramXML() string {
	return filepath.Join(c.CarlosXMLPath, "program_updates.xml")
}

// LibraryXML returns the path of the Carlos printed-music delta feed.
func (c *Config) LibraryXML() string {
	return filepath.Join(c.CarlosXMLPath, "library_updates.xml")
}

// BusinessRecordsXML returns the path of the DBText business-records feed.
func (c *Config) BusinessRecordsXML() string {
	return filepath.Join(c.DBTextXMLPath, "CTLG1024-1_full.xml")
}

// NameMappingCSV returns the path of the DBText name thesaurus.
func (c *Config) NameMappingCSV() string {
	return filepath.Join(c.DBTextXMLPath, "names-1.csv")
}

// PrepTable returns the path of a transform-stage output table.
func (c *Config) PrepTable(name string) string {
	return filepath.Join(c.Directory, name)
}

func lookup(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func withDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	raw := lookup(key)
	if raw == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func intEnv(key string, fallback int) int {
	raw := lookup(key)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
