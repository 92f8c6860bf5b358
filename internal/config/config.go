package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"invoicer/internal/logger"
)

// Config is read once at process start and handed to every constructor.
type Config struct {
	// Paths
	DBPath     string // reference store (companies, currencies, policies, sequences)
	OutputDir  string // generated .docx/.pdf files
	RequestDir string // bare request file names are resolved here
	LogoPath   string

	// Rendering
	PDFEngine      string // office, maroto, none
	OfficeBinary   string
	ConvertTimeout time.Duration
	VATRounding    string // half-up, half-even, down

	// Google credentials
	GoogleClientSecretFile string
	GoogleTokenFile        string
	GoogleCredentialsJSON  string
	GoogleCredentialsFile  string

	// Delivery
	DriveFolderID        string
	DriveTemplateFolders map[string]string // template name -> folder id
	MailFrom             string

	// Document register
	RegisterSheetURL  string
	RegisterSheetName string
	RegisterXLSXPath  string

	// Verification
	VerifyEngine          string // documentai, vision
	GoogleCloudProject    string
	GoogleCloudLocation   string
	DocumentAIProcessorID string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

var templateNames = []string{"NEON", "ARGENTA"}

func Load() (*Config, error) {
	config := &Config{
		DBPath:                 getEnv("PATH_DB", ""),
		OutputDir:              getEnv("PATH_OUT", "files/invoices"),
		RequestDir:             getEnv("PATH_CONFIG", "files/config"),
		LogoPath:               getEnv("LOGO_PATH", ""),
		PDFEngine:              strings.ToLower(getEnv("PDF_ENGINE", "office")),
		OfficeBinary:           getEnv("OFFICE_BINARY", "libreoffice"),
		ConvertTimeout:         time.Duration(getEnvInt("CONVERT_TIMEOUT_SECONDS", 120)) * time.Second,
		VATRounding:            strings.ToLower(getEnv("VAT_ROUNDING", "half-up")),
		GoogleClientSecretFile: getEnv("GOOGLE_CLIENT_SECRET_FILE", ""),
		GoogleTokenFile:        getEnv("GOOGLE_TOKEN_FILE", ""),
		GoogleCredentialsJSON:  getEnv("GOOGLE_CREDENTIALS", ""),
		GoogleCredentialsFile:  getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		DriveFolderID:          getEnv("DRIVE_FOLDER_ID", ""),
		DriveTemplateFolders:   make(map[string]string),
		MailFrom:               getEnv("MAIL_FROM", ""),
		RegisterSheetURL:       getEnv("REGISTER_SHEET_URL", ""),
		RegisterSheetName:      getEnv("REGISTER_SHEET_NAME", "Register"),
		RegisterXLSXPath:       getEnv("REGISTER_XLSX", ""),
		VerifyEngine:           strings.ToLower(getEnv("VERIFY_ENGINE", "documentai")),
		GoogleCloudProject:     getEnv("GOOGLE_CLOUD_PROJECT", ""),
		GoogleCloudLocation:    getEnv("GOOGLE_CLOUD_LOCATION", "eu"),
		DocumentAIProcessorID:  getEnv("DOCUMENT_AI_PROCESSOR_ID", ""),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		LogFormat:              getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:          getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:              getEnv("LOG_OUTPUT", "stderr"),
	}

	for _, name := range templateNames {
		// DIR_ID_<TEMPLATE> is the older spelling of the same setting.
		if id := getEnv("DRIVE_FOLDER_ID_"+name, getEnv("DIR_ID_"+name, "")); id != "" {
			config.DriveTemplateFolders[name] = id
		}
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("PATH_DB is required")
	}
	switch c.PDFEngine {
	case "office", "maroto", "none":
	default:
		return fmt.Errorf("PDF_ENGINE must be one of office, maroto, none (got %q)", c.PDFEngine)
	}
	switch c.VATRounding {
	case "half-up", "half-even", "down":
	default:
		return fmt.Errorf("VAT_ROUNDING must be one of half-up, half-even, down (got %q)", c.VATRounding)
	}
	switch c.VerifyEngine {
	case "documentai", "vision":
	default:
		return fmt.Errorf("VERIFY_ENGINE must be one of documentai, vision (got %q)", c.VerifyEngine)
	}
	if c.ConvertTimeout <= 0 {
		return fmt.Errorf("CONVERT_TIMEOUT_SECONDS must be positive")
	}
	return nil
}

// DriveFolderFor returns the upload folder for a template, falling back to
// DRIVE_FOLDER_ID.
func (c *Config) DriveFolderFor(template string) string {
	if id, ok := c.DriveTemplateFolders[strings.ToUpper(template)]; ok {
		return id
	}
	return c.DriveFolderID
}

// HasGoogleCredentials reports whether any Google credential source is configured.
func (c *Config) HasGoogleCredentials() bool {
	return (c.GoogleClientSecretFile != "" && c.GoogleTokenFile != "") ||
		c.GoogleCredentialsJSON != "" || c.GoogleCredentialsFile != ""
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
