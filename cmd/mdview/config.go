package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mdview/mdview"
)

// settingsFilename is the per-user settings file inside the instance dir.
const settingsFilename = "settings.yml"

// defaultInstanceDir returns the per-user state directory: MDVIEW_HOME
// when set, ~/.mdview otherwise.
func defaultInstanceDir() string {
	if dir := os.Getenv("MDVIEW_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mdview"
	}
	return filepath.Join(home, ".mdview")
}

// LoadConfig reads the settings file from the instance directory. A
// missing file yields the defaults; a malformed file is an error so a
// typo does not silently revert the user's settings.
func LoadConfig(dir string) (mdview.Config, error) {
	cfg := mdview.DefaultConfig()
	b, err := os.ReadFile(filepath.Join(dir, settingsFilename))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", settingsFilename, err)
	}
	return cfg, nil
}

// ParseAddress interprets an address argument. Accepted forms are
// "host:port", ":port", a bare port, and a bare host. Components not
// present are returned as zero values so callers can fall back to
// configured defaults.
func ParseAddress(addr string) (host string, port int, err error) {
	if addr == "" {
		return "", 0, nil
	}
	if i := strings.LastIndex(addr, ":"); i >= 0 {
		host = addr[:i]
		portPart := addr[i+1:]
		if portPart == "" {
			return host, 0, nil
		}
		port, err = parsePort(portPart)
		if err != nil {
			return "", 0, err
		}
		return host, port, nil
	}
	if isDigits(addr) {
		port, err = parsePort(addr)
		if err != nil {
			return "", 0, err
		}
		return "", port, nil
	}
	return addr, 0, nil
}

func parsePort(s string) (int, error) {
	port, err := strconv.Atoi(s)
	if err != nil || port < 1 || port > 65535 {
		return 0, mdview.Errorf(mdview.EINVALID, "invalid port %q", s)
	}
	return port, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
