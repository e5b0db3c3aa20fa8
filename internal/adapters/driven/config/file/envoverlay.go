package file

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/bidscribe/internal/core/ports/driven"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "BIDSCRIBE_"

// Ensure EnvOverlay implements the interface.
var _ driven.ConfigStore = (*EnvOverlay)(nil)

// EnvOverlay layers environment variables and .env files over another
// ConfigStore. A key such as "llm.api_key" is read from BIDSCRIBE_LLM_API_KEY.
// Process variables win over .env values, which win over the stored value.
// Writes go to the underlying store only.
type EnvOverlay struct {
	base    driven.ConfigStore
	dotenv  map[string]string
	lookup  func(string) (string, bool)
	envFile []string
}

// NewEnvOverlay wraps base. Missing .env files are ignored.
func NewEnvOverlay(base driven.ConfigStore, envFiles ...string) (*EnvOverlay, error) {
	o := &EnvOverlay{
		base:    base,
		lookup:  os.LookupEnv,
		envFile: envFiles,
	}
	if err := o.readEnvFiles(); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *EnvOverlay) readEnvFiles() error {
	o.dotenv = make(map[string]string)
	for _, path := range o.envFile {
		values, err := godotenv.Read(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return err
		}
		// earlier files take precedence, matching godotenv.Load
		for k, v := range values {
			if _, seen := o.dotenv[k]; !seen {
				o.dotenv[k] = v
			}
		}
	}
	return nil
}

// EnvName returns the variable that overrides key.
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
}

func (o *EnvOverlay) env(key string) (string, bool) {
	name := EnvName(key)
	if v, ok := o.lookup(name); ok && v != "" {
		return v, true
	}
	if v, ok := o.dotenv[name]; ok && v != "" {
		return v, true
	}
	return "", false
}

// Get returns the override as a string, or the stored value.
func (o *EnvOverlay) Get(key string) (any, bool) {
	if v, ok := o.env(key); ok {
		return v, true
	}
	return o.base.Get(key)
}

// GetString retrieves a string configuration value.
func (o *EnvOverlay) GetString(key string) string {
	if v, ok := o.env(key); ok {
		return v
	}
	return o.base.GetString(key)
}

// GetInt retrieves an integer configuration value.
func (o *EnvOverlay) GetInt(key string) int {
	if v, ok := o.env(key); ok {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return o.base.GetInt(key)
}

// GetBool retrieves a boolean configuration value.
func (o *EnvOverlay) GetBool(key string) bool {
	if v, ok := o.env(key); ok {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return o.base.GetBool(key)
}

// GetStringSlice splits a comma-separated override.
func (o *EnvOverlay) GetStringSlice(key string) []string {
	if v, ok := o.env(key); ok {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return o.base.GetStringSlice(key)
}

// Set stores the value in the underlying store.
func (o *EnvOverlay) Set(key string, value any) error {
	return o.base.Set(key, value)
}

// Save persists the underlying store.
func (o *EnvOverlay) Save() error {
	return o.base.Save()
}

// Load reloads the underlying store and re-reads the .env files.
func (o *EnvOverlay) Load() error {
	if err := o.base.Load(); err != nil {
		return err
	}
	return o.readEnvFiles()
}

// Path returns the underlying configuration file path.
func (o *EnvOverlay) Path() string {
	return o.base.Path()
}
