package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration. It is loaded once and passed by value
// into constructors; nothing reads it as process-wide state.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Sources  []SourceConfig `yaml:"sources"`
	Filters  FiltersConfig  `yaml:"filters"`
	Summary  SummaryConfig  `yaml:"summary"`
	Linker   LinkerConfig   `yaml:"linker"`
	Server   ServerConfig   `yaml:"server"`
}

// DatabaseConfig configures SQLite storage.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ScheduleConfig configures the daemon's harvest and enrich intervals.
type ScheduleConfig struct {
	HarvestInterval string `yaml:"harvest_interval"`
	EnrichInterval  string `yaml:"enrich_interval"`
}

// ParseHarvestInterval returns the harvest interval as a time.Duration.
func (s ScheduleConfig) ParseHarvestInterval() time.Duration {
	d, err := time.ParseDuration(s.HarvestInterval)
	if err != nil {
		return 6 * time.Hour
	}
	return d
}

// ParseEnrichInterval returns the enrich interval as a time.Duration.
func (s ScheduleConfig) ParseEnrichInterval() time.Duration {
	d, err := time.ParseDuration(s.EnrichInterval)
	if err != nil {
		return 12 * time.Hour
	}
	return d
}

// SourceConfig declares one harvest source. Kind is "feed" (RSS/Atom) or
// "listing" (HTML listing page with pagination). Include/Exclude are the
// per-source admission patterns; the "re:" prefix marks a regex.
type SourceConfig struct {
	Tag       string   `yaml:"tag"`
	URL       string   `yaml:"url"`
	Kind      string   `yaml:"kind"`
	FetchBody bool     `yaml:"fetch_body"`
	Include   []string `yaml:"include"`
	Exclude   []string `yaml:"exclude"`
}

// FiltersConfig holds global filter switches.
type FiltersConfig struct {
	Bypass bool `yaml:"bypass"`
}

// SummaryConfig configures the summarisation provider and word budget.
type SummaryConfig struct {
	Provider  string `yaml:"provider"` // "openai" or "anthropic"
	Model     string `yaml:"model"`
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	WordLimit int    `yaml:"word_limit"`
}

// LinkerConfig exposes the relevance scoring constants.
type LinkerConfig struct {
	MinRelevance  float64 `yaml:"min_relevance"`
	PhraseBoost   float64 `yaml:"phrase_boost"`
	PhraseDivisor float64 `yaml:"phrase_divisor"`
	NameBonus     float64 `yaml:"name_bonus"`
}

// ServerConfig configures the read-only HTTP API.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// Default returns a Config with the stock UK energy-sector source list.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "./regwatch.db"},
		Schedule: ScheduleConfig{
			HarvestInterval: "6h",
			EnrichInterval:  "12h",
		},
		Sources: []SourceConfig{
			// Core regulators / policy
			{
				Tag: "ofgem", Kind: "feed",
				URL: "https://www.gov.uk/government/organisations/ofgem.atom",
				Include: []string{
					"licence", "licensing", "standard conditions", "consultation",
					"guidance", "enforcement", "penalty", "heat network", "generator",
					"generation licence", "embedded generation", "connection",
					"incident", "caf", "nis2", "cyber",
				},
			},
			{
				Tag: "ofgem", Kind: "listing",
				URL: "https://www.ofgem.gov.uk/electricity-generation/small-scale-electricity-generation/small-scale-electricity-generation-publications",
			},
			{
				Tag: "desnz", Kind: "feed",
				URL: "https://www.gov.uk/government/organisations/department-for-energy-security-and-net-zero.atom",
				Include: []string{
					"contracts for difference", "cfd", "renewables obligation", "ro",
					"heat network", "chp", "funding", "grant", "consultation",
					"grid connection", "transmission", "npsc",
				},
			},
			{
				Tag: "ea", Kind: "feed",
				URL: "https://www.gov.uk/government/organisations/environment-agency.atom",
				Include: []string{
					"permit", "permitting", "environmental permit", "emissions",
					"flood", "abstraction", "discharge", "spill", "compliance",
				},
			},
			{
				Tag: "hse", Kind: "feed",
				URL: "https://press.hse.gov.uk/feed/",
				Include: []string{
					"electric", "electrical", "pressure system", "lifting", "turbine",
					"generator", "safety alert", "prosecution", "fine", "enforcement",
				},
			},
			// Grid / markets / codes
			{
				Tag: "elexon", Kind: "feed",
				URL: "https://www.elexon.co.uk/feed/",
				Include: []string{
					"bsc", "settlement", "meter", "metering", "imbalance",
					"market-wide half-hourly", "mhhs", "modification",
					"change proposal", `re:P\d{3}\b`,
				},
			},
			{
				Tag: "dcode", Kind: "listing",
				URL: "https://dcode.org.uk/dcode-modifications/",
				Include: []string{
					"distribution code", "engineering recommendation", "g59", "g98",
					"g99", "connection", "fault ride through", "embedded generation",
					"type test", "consultation", "modification", "proposal",
				},
			},
			{
				Tag: "dcode", Kind: "listing",
				URL: "https://dcode.org.uk/consultations/open-consultations/",
			},
			{
				Tag: "ena", Kind: "listing",
				URL: "https://www.energynetworks.org/all-news-and-updates",
				Include: []string{
					"engineering recommendation", "er p2", "er p28", "cyber",
					"resilience", "connection", "network code", "open networks",
				},
			},
			{
				Tag: "neso", Kind: "listing",
				URL: "https://www.neso.energy/news-and-events/media-centre",
				Include: []string{
					"grid", "system operator", "operability", "connections", "queue",
					"winter outlook", "balancing", "constraint", "intertrip",
					"grid code", "cusc", "future energy scenarios", "network map",
				},
			},
			// Cyber / data
			{
				Tag: "ncsc", Kind: "feed",
				URL: "https://www.ncsc.gov.uk/api/1/services/v1/all-rss-feed.xml",
				Include: []string{
					"industrial control", "ics", "scada", "ot", "operational technology",
					"energy", "electric", "power", "cve-", "ransom", "malware",
					"vulnerability", "patch",
				},
			},
			{
				Tag: "ico", Kind: "feed",
				URL: "https://www.gov.uk/government/organisations/information-commissioner-s-office.atom",
				Include: []string{
					"breach", "security", "incident", "guidance", "enforcement", "fine", "penalty",
				},
				Exclude: []string{"job", "vacancy", "podcast", "webinar", "event"},
			},
			{
				Tag: "ico", Kind: "listing",
				URL: "https://ico.org.uk/about-the-ico/media-centre/news-and-blogs/",
			},
			// Industry
			{
				Tag: "rea", Kind: "feed",
				URL: "https://www.r-e-a.net/feed/",
				Include: []string{
					"wind", "hydro", "chp", "biomass", "renewable", "planning",
					"grid connection", "business rates", "support scheme", "funding",
				},
			},
		},
		Summary: SummaryConfig{
			Provider:  "openai",
			Model:     "gpt-4o-mini",
			WordLimit: 100,
		},
		Linker: LinkerConfig{
			MinRelevance:  0.35,
			PhraseBoost:   0.5,
			PhraseDivisor: 2.0,
			NameBonus:     0.1,
		},
		Server: ServerConfig{Port: 8080},
	}
}

// Load reads configuration from a YAML file and applies env var overrides.
// An empty path loads the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("REGWATCH_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if os.Getenv("REGWATCH_BYPASS_FILTERS") == "1" {
		cfg.Filters.Bypass = true
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Summary.APIKey = v
		cfg.Summary.Provider = "openai"
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.Summary.APIKey = v
		cfg.Summary.Provider = "anthropic"
	}
}
