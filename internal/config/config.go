// Package config reads runtime configuration from the environment.
package config

import (
	"os"
	"strconv"
)

// CheckDPI holds the per-check render resolution overrides used by the
// tampering agent's visual checks.
type CheckDPI struct {
	DocumentDimension    int
	PageClarity          int
	SharpnessSpread      int
	VisualTampering      int
	PageCountDiscrepancy int
}

// Config is the process-wide configuration, populated once at startup.
type Config struct {
	Port             string
	DatabaseURL      string
	UseMemoryStore   bool
	UploadDir        string
	MaxFileSizeMB    int
	ModelEndpoint    string
	ModelAPIKey      string
	ModelAPIVersion  string
	ModelDeployment  string
	VisionDeployment string

	PDFToImageDPI        int
	CheckDPI             CheckDPI
	DimensionMinHeight   int
	DimensionMinWidth    int
	SharpnessThreshold   float64
	SharpnessSpreadRatio float64
	SharpnessMaxStdDev   float64
}

// Load builds a Config from the environment, applying the same defaults as
// the Python service's Settings class.
func Load() Config {
	return Config{
		Port:             getEnv("PORT", "8111"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		UseMemoryStore:   getEnv("USE_MEMORY_STORE", "") == "true" || getEnv("ENV", "") == "local",
		UploadDir:        getEnv("UPLOAD_DIR", "/tmp/thirdeye-uploads"),
		MaxFileSizeMB:    getEnvInt("MAX_FILE_SIZE_MB", 25),
		ModelEndpoint:    getEnv("MODEL_ENDPOINT", ""),
		ModelAPIKey:      getEnv("MODEL_API_KEY", ""),
		ModelAPIVersion:  getEnv("MODEL_API_VERSION", ""),
		ModelDeployment:  getEnv("MODEL_DEPLOYMENT", ""),
		VisionDeployment: getEnv("VISION_DEPLOYMENT", ""),

		PDFToImageDPI: getEnvInt("PDF_TO_IMAGE_DPI", 200),
		CheckDPI: CheckDPI{
			DocumentDimension:    getEnvInt("CHECK_DPI_DOCUMENT_DIMENSION", 300),
			PageClarity:          getEnvInt("CHECK_DPI_PAGE_CLARITY", 300),
			SharpnessSpread:      getEnvInt("CHECK_DPI_SHARPNESS_SPREAD", 300),
			VisualTampering:      getEnvInt("CHECK_DPI_VISUAL_TAMPERING", 150),
			PageCountDiscrepancy: getEnvInt("CHECK_DPI_PAGE_COUNT_DISCREPANCY", 100),
		},
		DimensionMinHeight:   getEnvInt("DIMENSION_MIN_HEIGHT", 800),
		DimensionMinWidth:    getEnvInt("DIMENSION_MIN_WIDTH", 1000),
		SharpnessThreshold:   getEnvFloat("SHARPNESS_THRESHOLD", 500.0),
		SharpnessSpreadRatio: getEnvFloat("SHARPNESS_SPREAD_RATIO", 0.5),
		SharpnessMaxStdDev:   getEnvFloat("SHARPNESS_MAX_STD_DEV", 100.0),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
