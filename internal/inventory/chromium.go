package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/stacklok/extguard/internal/versions"
)

const (
	extensionsDirName = "Extensions"
	manifestFileName  = "manifest.json"
	msgPrefix         = "__MSG_"
	msgSuffix         = "__"
)

// Chromium keeps extension settings in either preferences file depending on version
var preferenceFiles = []string{"Preferences", "Secure Preferences"}

// ChromiumEnumerator reads installed extensions from a Chromium profile directory
type ChromiumEnumerator struct {
	profileDir string
}

var _ Enumerator = (*ChromiumEnumerator)(nil)

// NewChromiumEnumerator creates an enumerator for the profile at profileDir
// (for example ~/.config/google-chrome/Default)
func NewChromiumEnumerator(profileDir string) *ChromiumEnumerator {
	return &ChromiumEnumerator{profileDir: profileDir}
}

type manifest struct {
	Name          string            `json:"name"`
	Version       string            `json:"version"`
	DefaultLocale string            `json:"default_locale"`
	Icons         map[string]string `json:"icons"`
}

// ListAll implements Enumerator
func (c *ChromiumEnumerator) ListAll(ctx context.Context) ([]InstalledExtension, error) {
	root := filepath.Join(c.profileDir, extensionsDirName)
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read extensions directory: %w", err)
	}

	prefs := c.loadPreferences(ctx)

	exts := []InstalledExtension{}
	for _, e := range entries {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !e.IsDir() {
			continue
		}
		id := e.Name()
		ext, err := readExtension(filepath.Join(root, id), id)
		if err != nil {
			slog.DebugContext(ctx, "Skipping extension directory", "id", id, "error", err)
			continue
		}
		ext.Enabled = isEnabled(prefs, id)
		exts = append(exts, *ext)
	}

	sortByID(exts)
	return exts, nil
}

// loadPreferences returns the readable preference documents of the profile
func (c *ChromiumEnumerator) loadPreferences(ctx context.Context) []gjson.Result {
	var docs []gjson.Result
	for _, name := range preferenceFiles {
		data, err := os.ReadFile(filepath.Join(c.profileDir, name))
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				slog.WarnContext(ctx, "Failed to read preferences", "file", name, "error", err)
			}
			continue
		}
		data = trimBOM(data)
		if !gjson.ValidBytes(data) {
			slog.WarnContext(ctx, "Ignoring malformed preferences", "file", name)
			continue
		}
		docs = append(docs, gjson.ParseBytes(data))
	}
	return docs
}

// isEnabled reports the enabled state recorded for id. Extensions without
// recorded settings are treated as enabled.
func isEnabled(prefs []gjson.Result, id string) bool {
	for _, doc := range prefs {
		settings := doc.Get("extensions.settings." + id)
		if !settings.Exists() {
			continue
		}
		if reasons := settings.Get("disable_reasons"); reasons.Exists() {
			if reasons.IsArray() && len(reasons.Array()) > 0 {
				return false
			}
			if reasons.Type == gjson.Number && reasons.Int() != 0 {
				return false
			}
		}
		if state := settings.Get("state"); state.Exists() {
			return state.Int() == 1
		}
		return true
	}
	return true
}

// readExtension loads the highest installed version of the extension in dir
func readExtension(dir, id string) (*InstalledExtension, error) {
	versionDir, err := highestVersionDir(dir)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(versionDir, manifestFileName))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m manifest
	if err := json.Unmarshal(trimBOM(data), &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	ext := &InstalledExtension{
		ID:      id,
		Name:    resolveMessage(versionDir, m.DefaultLocale, m.Name),
		Version: m.Version,
	}
	if len(m.Icons) > 0 {
		ext.Icons = make(map[string]string, len(m.Icons))
		for size, icon := range m.Icons {
			ext.Icons[size] = filepath.Join(versionDir, filepath.FromSlash(icon))
		}
	}
	return ext, nil
}

func highestVersionDir(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	best := ""
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(dir, e.Name(), manifestFileName)); err != nil {
			continue
		}
		if best == "" || versions.IsNewerVersion(e.Name(), best) {
			best = e.Name()
		}
	}
	if best == "" {
		return "", fmt.Errorf("no installed version in %s", dir)
	}
	return filepath.Join(dir, best), nil
}

// resolveMessage expands a __MSG_key__ placeholder from the default locale.
// Message keys are matched case-insensitively. Unresolvable placeholders are returned as-is.
func resolveMessage(versionDir, locale, value string) string {
	if locale == "" || !strings.HasPrefix(value, msgPrefix) || !strings.HasSuffix(value, msgSuffix) ||
		len(value) <= len(msgPrefix)+len(msgSuffix) {
		return value
	}
	key := value[len(msgPrefix) : len(value)-len(msgSuffix)]

	data, err := os.ReadFile(filepath.Join(versionDir, "_locales", locale, "messages.json"))
	data = trimBOM(data)
	if err != nil || !gjson.ValidBytes(data) {
		return value
	}

	resolved := value
	gjson.ParseBytes(data).ForEach(func(k, v gjson.Result) bool {
		if strings.EqualFold(k.String(), key) {
			if msg := v.Get("message").String(); msg != "" {
				resolved = msg
			}
			return false
		}
		return true
	})
	return resolved
}
