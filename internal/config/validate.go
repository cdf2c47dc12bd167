package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sort"
	"strings"

	"github.com/sift/sift/internal/normalize"
)

type ValidationError struct {
	Problems []string
}

func (v *ValidationError) Add(format string, args ...any) {
	v.Problems = append(v.Problems, fmt.Sprintf(format, args...))
}

func (v *ValidationError) Error() string {
	return fmt.Sprintf("%d validation error(s)", len(v.Problems))
}

// Validate reports every problem in the config at once, sorted.
func (c *Config) Validate() error {
	v := &ValidationError{}

	if c.ConfigVersion != 1 {
		v.Add("configVersion must be 1")
	}

	if len(c.Rules) == 0 {
		v.Add("rules must not be empty")
	}

	ruleIDs := map[string]struct{}{}
	for i, rule := range c.Rules {
		if rule.ID == "" {
			v.Add("rules[%d].id is required", i)
		} else if _, exists := ruleIDs[rule.ID]; exists {
			v.Add("rules[%d].id %q is duplicated", i, rule.ID)
		} else {
			ruleIDs[rule.ID] = struct{}{}
		}

		if rule.Score < 0 {
			v.Add("rules[%d].score must be >= 0", i)
		}
		if rule.MaxMatches < 0 {
			v.Add("rules[%d].maxMatches must be >= 0", i)
		}
		if rule.DecodeDepth < 0 {
			v.Add("rules[%d].decodeDepth must be >= 0", i)
		}

		switch rule.Alphabet {
		case AlphabetBytes, AlphabetRunes:
		default:
			v.Add("rules[%d].alphabet must be bytes|runes", i)
		}

		if _, err := normalize.Parse(rule.Transforms); err != nil {
			v.Add("rules[%d].transforms invalid: %v", i, err)
		}

		if len(rule.Patterns) == 0 && rule.PatternsFile == "" {
			v.Add("rules[%d] needs patterns or patternsFile", i)
		}
		if rule.PatternsFile != "" {
			if err := requireFile(c.resolvePath(rule.PatternsFile)); err != nil {
				v.Add("rules[%d].patternsFile invalid: %v", i, err)
			}
		}
	}

	switch c.Policy.Mode {
	case ModeReport, ModeEnforce:
	default:
		v.Add("policy.mode must be report|enforce")
	}
	if c.Policy.Threshold < 0 {
		v.Add("policy.threshold must be >= 0")
	}

	if c.Scan.ChunkSize <= 0 {
		v.Add("scan.chunkSize must be > 0")
	}
	if c.Scan.MaxBufferedBytes <= 0 {
		v.Add("scan.maxBufferedBytes must be > 0")
	}

	if c.Server.Listen != "" {
		if err := validateListen(c.Server.Listen); err != nil {
			v.Add("server.listen invalid: %v", err)
		}
	}
	if c.Server.MaxBodyBytes <= 0 {
		v.Add("server.maxBodyBytes must be > 0")
	}
	if c.Server.RateLimit.Enabled {
		if c.Server.RateLimit.RPS <= 0 {
			v.Add("server.rateLimit.rps must be > 0")
		}
		if c.Server.RateLimit.Burst <= 0 {
			v.Add("server.rateLimit.burst must be > 0")
		}
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		v.Add("logging.level must be debug|info|warn|error")
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		v.Add("logging.format must be text|json")
	}

	if c.Metrics.Enabled {
		if err := validateListen(c.Metrics.Listen); err != nil {
			v.Add("metrics.listen invalid: %v", err)
		}
	}

	if len(v.Problems) > 0 {
		sort.Strings(v.Problems)
		return v
	}
	return nil
}

func validateListen(addr string) error {
	if strings.TrimSpace(addr) == "" {
		return errors.New("address is required")
	}
	if _, err := net.ResolveTCPAddr("tcp", addr); err != nil {
		return err
	}
	return nil
}

func requireFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}
