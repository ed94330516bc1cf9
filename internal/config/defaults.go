package config

const (
	defaultUploadDir          = "~/.local/share/reslice/uploads"
	defaultSlicesDir          = "~/.local/share/reslice/slices"
	defaultLogDir             = "~/.local/share/reslice/logs"
	defaultAPIBind            = "127.0.0.1:7910"
	defaultRedisURL           = "redis://localhost:6379/0"
	defaultRedisDialTimeout   = 5
	defaultStatusTTLHours     = 24
	defaultSweepInterval      = 3600
	defaultObjectStoreBucket  = "medical-slices"
	defaultRecordsTable       = "report_ai"
	defaultRequestTimeout     = 30
	defaultMaxFileSizeMiB     = 1000
	defaultQueuePollInterval  = 5
	defaultErrorRetryInterval = 10
	defaultWorkers            = 2
	defaultStageSoftTimeout   = 1500
	defaultStageHardTimeout   = 1800
	defaultJPEGQuality        = 85
	defaultStdDevThreshold    = 1.0
	defaultProgressInterval   = 10
	defaultLogFormat          = "text"
	defaultLogLevel           = "info"
)

var defaultAllowedExtensions = []string{".nii", ".nii.gz", ".dcm", ".dicom", ".ima"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			UploadDir: defaultUploadDir,
			SlicesDir: defaultSlicesDir,
			LogDir:    defaultLogDir,
			APIBind:   defaultAPIBind,
		},
		Redis: Redis{
			URL:            defaultRedisURL,
			DialTimeout:    defaultRedisDialTimeout,
			StatusTTLHours: defaultStatusTTLHours,
			SweepInterval:  defaultSweepInterval,
		},
		ObjectStore: ObjectStore{
			Bucket:         defaultObjectStoreBucket,
			RequestTimeout: defaultRequestTimeout,
		},
		Records: Records{
			Table:          defaultRecordsTable,
			RequestTimeout: defaultRequestTimeout,
		},
		Ingest: Ingest{
			MaxFileSizeMiB:    defaultMaxFileSizeMiB,
			AllowedExtensions: append([]string(nil), defaultAllowedExtensions...),
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			Workers:            defaultWorkers,
			StageSoftTimeout:   defaultStageSoftTimeout,
			StageHardTimeout:   defaultStageHardTimeout,
		},
		Export: Export{
			JPEGQuality:      defaultJPEGQuality,
			StdDevThreshold:  defaultStdDevThreshold,
			ProgressInterval: defaultProgressInterval,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
