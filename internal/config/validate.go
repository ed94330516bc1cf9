package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks configuration invariants that would otherwise surface as
// confusing runtime failures.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.UploadDir) == "" {
		problems = append(problems, "paths.upload_dir must not be empty")
	}
	if strings.TrimSpace(c.Paths.SlicesDir) == "" {
		problems = append(problems, "paths.slices_dir must not be empty")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		problems = append(problems, "paths.log_dir must not be empty")
	}
	if strings.TrimSpace(c.Redis.URL) == "" {
		problems = append(problems, "redis.url must not be empty")
	}
	if c.Redis.StatusTTLHours <= 0 {
		problems = append(problems, "redis.status_ttl_hours must be positive")
	}
	if c.Workflow.Workers <= 0 {
		problems = append(problems, "workflow.workers must be positive")
	}
	if c.Workflow.QueuePollInterval <= 0 {
		problems = append(problems, "workflow.queue_poll_interval must be positive")
	}
	if c.Workflow.StageHardTimeout <= 0 {
		problems = append(problems, "workflow.stage_hard_timeout must be positive")
	}
	if c.Workflow.StageSoftTimeout <= 0 {
		problems = append(problems, "workflow.stage_soft_timeout must be positive")
	}
	if c.Workflow.StageSoftTimeout > c.Workflow.StageHardTimeout {
		problems = append(problems, "workflow.stage_soft_timeout must not exceed workflow.stage_hard_timeout")
	}
	if c.Export.JPEGQuality < 1 || c.Export.JPEGQuality > 100 {
		problems = append(problems, "export.jpeg_quality must be between 1 and 100")
	}
	if c.Export.StdDevThreshold < 0 {
		problems = append(problems, "export.stddev_threshold must not be negative")
	}
	if c.Ingest.MaxFileSizeMiB <= 0 {
		problems = append(problems, "ingest.max_file_size_mib must be positive")
	}
	if len(c.Ingest.AllowedExtensions) == 0 {
		problems = append(problems, "ingest.allowed_extensions must not be empty")
	}

	if len(problems) == 0 {
		return nil
	}
	if len(problems) == 1 {
		return errors.New(problems[0])
	}
	return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(problems, "\n  - "))
}
