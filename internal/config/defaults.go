package config

const (
	defaultUploadDir             = "~/.local/share/waxcrate/uploads"
	defaultLogDir                = "~/.local/share/waxcrate/logs"
	defaultAPIBind               = "127.0.0.1:7910"
	defaultMaxUploadBytes        = 25 << 20
	defaultMaxFilenameLength     = 255
	defaultVisionBaseURL         = "https://api.openai.com/v1/chat/completions"
	defaultVisionModel           = "gpt-4o-mini"
	defaultVisionTimeoutSeconds  = 30
	defaultCatalogBaseURL        = "https://api.discogs.com"
	defaultCatalogTimeoutSeconds = 10
	defaultOCRBinary             = "tesseract"
	defaultOCRLanguage           = "eng"
	defaultOCRTimeoutSeconds     = 20
	defaultConfidenceThreshold   = 0.75
	defaultHeuristicCostCents    = 0
	defaultVisionCostCents       = 2
	defaultCacheCapacity         = 256
	defaultTombstoneRetention    = 30
	defaultPollInterval          = 5
	defaultHeartbeatInterval     = 15
	defaultHeartbeatTimeout      = 120
	defaultMaintenanceInterval   = 3600
	defaultLogFormat             = "text"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			UploadDir: defaultUploadDir,
			LogDir:    defaultLogDir,
			APIBind:   defaultAPIBind,
		},
		Ingest: Ingest{
			MaxUploadBytes:    defaultMaxUploadBytes,
			MaxFilenameLength: defaultMaxFilenameLength,
		},
		Vision: Vision{
			BaseURL:        defaultVisionBaseURL,
			Model:          defaultVisionModel,
			TimeoutSeconds: defaultVisionTimeoutSeconds,
		},
		Catalog: Catalog{
			BaseURL:        defaultCatalogBaseURL,
			TimeoutSeconds: defaultCatalogTimeoutSeconds,
		},
		OCR: OCR{
			Binary:         defaultOCRBinary,
			Language:       defaultOCRLanguage,
			TimeoutSeconds: defaultOCRTimeoutSeconds,
		},
		Analysis: Analysis{
			ConfidenceThreshold: defaultConfidenceThreshold,
			HeuristicCostCents:  defaultHeuristicCostCents,
			VisionCostCents:     defaultVisionCostCents,
		},
		Enrichment: Enrichment{
			CacheCapacity: defaultCacheCapacity,
		},
		Archive: Archive{
			TombstoneRetentionDays: defaultTombstoneRetention,
		},
		Workflow: Workflow{
			PollInterval:        defaultPollInterval,
			HeartbeatInterval:   defaultHeartbeatInterval,
			HeartbeatTimeout:    defaultHeartbeatTimeout,
			MaintenanceInterval: defaultMaintenanceInterval,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
