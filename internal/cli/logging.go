package cli

import (
	"fmt"
	"strings"

	"github.com/zeromicro/go-zero/core/logx"

	"btcdigest/internal/config"
	"btcdigest/pkg/confkit"
)

// ConfigSummaryLines returns human readable lines describing the loaded app config.
func ConfigSummaryLines(cfg *config.Config) []string {
	if cfg == nil {
		return []string{"Configuration: <nil>"}
	}

	tz := cfg.Schedule.Timezone
	if strings.TrimSpace(tz) == "" {
		tz = "local"
	}
	lines := []string{
		fmt.Sprintf("Environment: %s", cfg.Env),
		fmt.Sprintf("Schedule: %s (%s)", strings.Join(cfg.Schedule.Times, ", "), tz),
		fmt.Sprintf("Cycle timeout: %s", cfg.CycleTimeout),
		publishLine(cfg.Publish),
		fmt.Sprintf("Journal: %s", presence(strings.TrimSpace(cfg.JournalDir) != "")),
		sectionLine("Market config", cfg.Market),
	}
	if cfg.Market.Loaded() {
		m := cfg.Market.Value
		lines = append(lines, fmt.Sprintf("Market: %d assets, %d providers, reference %s", len(m.Assets), len(m.Providers), m.Reference))
	}

	return lines
}

// LogConfigSummary emits the configuration summary using logx.
func LogConfigSummary(cfg *config.Config) {
	lines := ConfigSummaryLines(cfg)
	if len(lines) == 0 {
		return
	}
	logx.Info("configuration summary")
	for _, line := range lines {
		logx.Infof("config • %s", line)
	}
}

func publishLine(p config.PublishConf) string {
	if p.Mode == config.PublishWebhook {
		return fmt.Sprintf("Publish: webhook (token %s)", presence(p.Token != ""))
	}
	return fmt.Sprintf("Publish: %s", p.Mode)
}

func presence(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

func sectionLine[T any](name string, section confkit.Section[T]) string {
	switch {
	case strings.TrimSpace(section.File) != "":
		return fmt.Sprintf("%s: %s", name, section.File)
	case section.Value != nil:
		return fmt.Sprintf("%s: inline", name)
	default:
		return fmt.Sprintf("%s: not configured", name)
	}
}
