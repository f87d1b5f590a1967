// Package config holds process settings from the environment and the
// injected data sets (gazetteer, keyword lists, tag rules) from YAML.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed data.yaml
var defaultData []byte

// App holds infrastructure settings read from environment variables.
type App struct {
	Port     string // PORT, defaults to 8080
	MPKKey   string // MPK_API_KEY, empty means fixture fallback
	DataPath string // DATA_CONFIG, empty means embedded defaults
}

// AppFromEnv reads process settings from the environment.
func AppFromEnv() App {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	return App{
		Port:     port,
		MPKKey:   os.Getenv("MPK_API_KEY"),
		DataPath: os.Getenv("DATA_CONFIG"),
	}
}

// CityEntry is one gazetteer row.
type CityEntry struct {
	Name string  `yaml:"name"`
	Lat  float64 `yaml:"lat"`
	Lng  float64 `yaml:"lng"`
}

// TagRule maps trigger words found in listing text to a classification tag.
type TagRule struct {
	Tag   string   `yaml:"tag"`
	Words []string `yaml:"words"`
}

// Data holds the injected data sets. Loaded once at process start so
// tests can substitute synthetic gazetteers and keyword lists.
type Data struct {
	Cities     []CityEntry `yaml:"cities"`
	Subreddits []string    `yaml:"subreddits"`
	Keywords   []string    `yaml:"keywords"`
	TagRules   []TagRule   `yaml:"tag_rules"`
}

// LoadData reads the data sets from the YAML file at path, or from the
// embedded defaults when path is empty.
func LoadData(path string) (*Data, error) {
	raw := defaultData
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read data config %q: %w", path, err)
		}
		raw = b
	}

	var d Data
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("parse data config: %w", err)
	}
	if err := d.validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

func (d *Data) validate() error {
	if len(d.Cities) == 0 {
		return errors.New("data config: no cities")
	}
	if len(d.Subreddits) == 0 {
		return errors.New("data config: no subreddits")
	}
	if len(d.Keywords) == 0 {
		return errors.New("data config: no keywords")
	}
	if len(d.TagRules) == 0 {
		return errors.New("data config: no tag rules")
	}

	// An empty string in any of these sets would substring-match every
	// text downstream, so reject them here.
	for i, c := range d.Cities {
		if c.Name == "" {
			return fmt.Errorf("data config: city %d has no name", i)
		}
	}
	for i, s := range d.Subreddits {
		if s == "" {
			return fmt.Errorf("data config: subreddit %d is empty", i)
		}
	}
	for i, k := range d.Keywords {
		if k == "" {
			return fmt.Errorf("data config: keyword %d is empty", i)
		}
	}
	for i, r := range d.TagRules {
		if r.Tag == "" {
			return fmt.Errorf("data config: tag rule %d has no tag", i)
		}
		if len(r.Words) == 0 {
			return fmt.Errorf("data config: tag rule %q has no words", r.Tag)
		}
		for _, w := range r.Words {
			if w == "" {
				return fmt.Errorf("data config: tag rule %q has an empty word", r.Tag)
			}
		}
	}
	return nil
}
