package shura

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config holds the raw key/value pairs from shura.conf plus SHURA_* env overrides.
type Config struct {
	Values map[string]string
}

// loadConfig reads shura.conf. A missing file is not an error: every key has a
// default and the environment can supply the rest.
func loadConfig(path string) (*Config, error) {
	cfg := &Config{Values: make(map[string]string)}

	file, err := os.Open(path)
	if err == nil {
		defer file.Close()
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			parts := strings.SplitN(line, "=", 2)
			if len(parts) != 2 {
				continue
			}
			key := strings.TrimSpace(parts[0])
			val := strings.TrimSpace(parts[1])
			val = strings.Trim(val, `"'`)
			cfg.Values[key] = val
		}
		if err := scanner.Err(); err != nil {
			return cfg, err
		}
	}

	mergeEnvOverrides(cfg)
	return cfg, nil
}

// mergeEnvOverrides folds SHURA_* environment variables over the file values.
func mergeEnvOverrides(cfg *Config) {
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, "SHURA_") {
			parts := strings.SplitN(env, "=", 2)
			if len(parts) == 2 {
				cfg.Values[parts[0]] = parts[1]
			}
		}
	}
}

func (c *Config) getDefault(key, def string) string {
	if v := c.Values[key]; v != "" {
		return v
	}
	return def
}

// initConfig resolves the global directory layout from the configuration.
// The kernel tree is the anchor; the sibling projects default to checkouts
// next to it.
func initConfig(cfg *Config) {
	KernelDir = cfg.getDefault("SHURA_KERNEL_DIR", ".")
	PkDir = cfg.getDefault("SHURA_PK_DIR", filepath.Join(KernelDir, "..", "riscv-pk"))
	BootloaderDir = cfg.getDefault("SHURA_BOOTLOADER_DIR", filepath.Join(KernelDir, "..", "bootloader"))
	UserDir = cfg.getDefault("SHURA_USER_DIR", filepath.Join(KernelDir, "..", "user"))
	BuildRoot = cfg.getDefault("SHURA_BUILD_DIR", filepath.Join(KernelDir, "build"))
	UserImg = cfg.getDefault("SHURA_USER_IMG", filepath.Join(UserDir, "build", "user.img"))
	SDCardMount = cfg.Values["SHURA_SDCARD"]

	if cfg.Values["SHURA_DEBUG"] == "1" {
		Debug = true
	}
	if cfg.Values["SHURA_VERBOSE"] == "1" {
		Verbose = true
	}
}

// setConfigValue updates one key in shura.conf, preserving unrelated lines.
func setConfigValue(cfg *Config, key, value string) error {
	cfg.Values[key] = value

	var lines []string
	replaced := false

	if data, err := os.ReadFile(ConfigFile); err == nil {
		for _, line := range strings.Split(string(data), "\n") {
			trimmed := strings.TrimSpace(line)
			if strings.HasPrefix(trimmed, key+"=") {
				lines = append(lines, fmt.Sprintf("%s=%s", key, value))
				replaced = true
				continue
			}
			lines = append(lines, line)
		}
		// Drop a single trailing empty line so we do not grow the file.
		if n := len(lines); n > 0 && lines[n-1] == "" {
			lines = lines[:n-1]
		}
	}
	if !replaced {
		lines = append(lines, fmt.Sprintf("%s=%s", key, value))
	}

	return os.WriteFile(ConfigFile, []byte(strings.Join(lines, "\n")+"\n"), 0o644)
}
