package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML overlay layout. Only fields that are set replace
// the environment-derived values.
//
//	log:
//	  level: debug
//	scraper:
//	  max_pages: 10
//	sources:
//	  live-trading:
//	    ttl: 30s
type fileConfig struct {
	Server struct {
		Port int    `yaml:"port"`
		Mode string `yaml:"mode"`
	} `yaml:"server"`
	Browser struct {
		Driver string `yaml:"driver"`
		Proxy  string `yaml:"proxy"`
	} `yaml:"browser"`
	Scraper struct {
		InitialWait       time.Duration `yaml:"initial_wait"`
		NavigationTimeout time.Duration `yaml:"navigation_timeout"`
		MaxLimit          int           `yaml:"max_limit"`
		MaxPages          int           `yaml:"max_pages"`
		ClipOnAppend      *bool         `yaml:"clip_on_append"`
	} `yaml:"scraper"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Sources map[string]SourceOverride `yaml:"sources"`
}

// ApplyFile overlays the YAML file at path onto c.
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	var f fileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	setInt(&c.Server.Port, f.Server.Port)
	setString(&c.Server.Mode, f.Server.Mode)
	setString(&c.Browser.Driver, f.Browser.Driver)
	setString(&c.Browser.DefaultProxy, f.Browser.Proxy)
	if f.Scraper.InitialWait > 0 {
		c.Scraper.InitialWait = f.Scraper.InitialWait
	}
	if f.Scraper.NavigationTimeout > 0 {
		c.Scraper.NavigationTimeout = f.Scraper.NavigationTimeout
	}
	setInt(&c.Scraper.MaxLimit, f.Scraper.MaxLimit)
	setInt(&c.Scraper.MaxPages, f.Scraper.MaxPages)
	if f.Scraper.ClipOnAppend != nil {
		c.Scraper.ClipOnAppend = *f.Scraper.ClipOnAppend
	}
	setString(&c.Log.Level, f.Log.Level)
	setString(&c.Log.Format, f.Log.Format)

	if c.Sources == nil {
		c.Sources = map[string]SourceOverride{}
	}
	for slug, o := range f.Sources {
		cur := c.Sources[slug]
		setString(&cur.URL, o.URL)
		if o.TTL > 0 {
			cur.TTL = o.TTL
		}
		c.Sources[slug] = cur
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}
