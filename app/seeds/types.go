package seeds

// SeedList represents a named list of seed keywords to mine
type SeedList struct {
	Name     string       `yaml:"name"`
	Keywords []string     `yaml:"keywords"`
	Settings ListSettings `yaml:"settings"`
}

// ListSettings contains mining settings for a seed list
type ListSettings struct {
	Enabled         bool   `yaml:"enabled"`
	Timeframe       string `yaml:"timeframe"`
	RefreshInterval int    `yaml:"refresh_interval"` // seconds
	ForceRefresh    bool   `yaml:"force_refresh"`
}
