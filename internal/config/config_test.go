package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "DATABASE_URL", "USE_MEMORY_STORE", "ENV", "UPLOAD_DIR",
		"MAX_FILE_SIZE_MB", "MODEL_ENDPOINT", "MODEL_API_KEY", "MODEL_API_VERSION",
		"MODEL_DEPLOYMENT", "VISION_DEPLOYMENT", "PDF_TO_IMAGE_DPI",
		"DIMENSION_MIN_HEIGHT", "DIMENSION_MIN_WIDTH", "SHARPNESS_THRESHOLD",
		"SHARPNESS_SPREAD_RATIO", "SHARPNESS_MAX_STD_DEV",
	} {
		os.Unsetenv(key)
	}

	cfg := Load()

	assert.Equal(t, "8111", cfg.Port)
	assert.Equal(t, "/tmp/thirdeye-uploads", cfg.UploadDir)
	assert.Equal(t, 25, cfg.MaxFileSizeMB)
	assert.Equal(t, 200, cfg.PDFToImageDPI)
	assert.Equal(t, 800, cfg.DimensionMinHeight)
	assert.Equal(t, 1000, cfg.DimensionMinWidth)
	assert.Equal(t, 500.0, cfg.SharpnessThreshold)
	assert.Equal(t, 0.5, cfg.SharpnessSpreadRatio)
	assert.Equal(t, 100.0, cfg.SharpnessMaxStdDev)
	assert.Equal(t, 300, cfg.CheckDPI.DocumentDimension)
	assert.Equal(t, 150, cfg.CheckDPI.VisualTampering)
	assert.False(t, cfg.UseMemoryStore, "UseMemoryStore defaults false when USE_MEMORY_STORE/ENV unset")
}

func TestLoad_EnvOverrides(t *testing.T) {
	os.Setenv("MAX_FILE_SIZE_MB", "50")
	os.Setenv("SHARPNESS_THRESHOLD", "725.5")
	os.Setenv("USE_MEMORY_STORE", "true")
	os.Setenv("MODEL_ENDPOINT", "https://example.test")
	defer func() {
		os.Unsetenv("MAX_FILE_SIZE_MB")
		os.Unsetenv("SHARPNESS_THRESHOLD")
		os.Unsetenv("USE_MEMORY_STORE")
		os.Unsetenv("MODEL_ENDPOINT")
	}()

	cfg := Load()
	assert.Equal(t, 50, cfg.MaxFileSizeMB)
	assert.Equal(t, 725.5, cfg.SharpnessThreshold)
	assert.True(t, cfg.UseMemoryStore)
	assert.Equal(t, "https://example.test", cfg.ModelEndpoint)
}

func TestLoad_InvalidNumericFallsBackToDefault(t *testing.T) {
	os.Setenv("MAX_FILE_SIZE_MB", "not-a-number")
	defer os.Unsetenv("MAX_FILE_SIZE_MB")

	assert.Equal(t, 25, Load().MaxFileSizeMB)
}
