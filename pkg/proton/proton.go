// Package proton derives file destinations inside a Proton prefix and
// maintains the per-game custom INI needed for loose-file mod support.
// It is pure path math and text merging; prefix discovery itself belongs
// to the embedding application.
package proton

import (
	"path/filepath"
	"strings"

	"github.com/modcollect/modcollect/pkg/types"
)

// iniSettings are the archive-invalidation keys a game's custom INI must
// carry for loose mod files to be picked up.
type iniSettings struct {
	filename string
	sections map[string]map[string]string
}

var gameINISettings = map[string]iniSettings{
	"starfield": {
		filename: "StarfieldCustom.ini",
		sections: map[string]map[string]string{
			"Archive": {
				"bInvalidateOlderFiles":  "1",
				"sResourceDataDirsFinal": "",
			},
		},
	},
	"skyrimspecialedition": {
		filename: "SkyrimCustom.ini",
		sections: map[string]map[string]string{
			"Archive": {
				"bInvalidateOlderFiles":  "1",
				"sResourceDataDirsFinal": "",
			},
		},
	},
	"fallout4": {
		filename: "Fallout4Custom.ini",
		sections: map[string]map[string]string{
			"Archive": {
				"bInvalidateOlderFiles":  "1",
				"sResourceDataDirsFinal": "",
			},
		},
	},
}

// gameDocNames maps game domains to their folder under the Proton user's
// Documents/My Games directory.
var gameDocNames = map[string]string{
	"starfield":            "Starfield",
	"skyrimspecialedition": "Skyrim Special Edition",
	"fallout4":             "Fallout4",
}

// gameAppDataNames maps game domains to their folder under the Proton
// user's AppData/Local directory.
var gameAppDataNames = map[string]string{
	"starfield":            "Starfield",
	"skyrimspecialedition": "Skyrim Special Edition",
	"fallout4":             "Fallout4",
}

// PluginsDest returns where the generated plugin listing belongs inside a
// Proton prefix, or "" when the game has no known AppData location.
func PluginsDest(prefix, gameDomain string) string {
	name := gameAppDataNames[strings.ToLower(gameDomain)]
	if name == "" {
		return ""
	}
	return filepath.Join(prefix, "drive_c", "users", "steamuser",
		"AppData", "Local", name, "plugins.txt")
}

// GameINIPath returns the path of the game's custom INI inside a Proton
// prefix, or "" when the game needs no INI.
func GameINIPath(prefix, gameDomain string) string {
	domain := strings.ToLower(gameDomain)
	docName := gameDocNames[domain]
	settings, ok := gameINISettings[domain]
	if docName == "" || !ok {
		return ""
	}
	return filepath.Join(prefix, "drive_c", "users", "steamuser",
		"Documents", "My Games", docName, settings.filename)
}

// WriteGameINI creates or updates the game's custom INI, merging the
// required archive-invalidation keys into whatever sections already exist.
// Returns false when the game needs no INI.
func WriteGameINI(fsys types.FS, iniPath, gameDomain string) (bool, error) {
	settings, ok := gameINISettings[strings.ToLower(gameDomain)]
	if !ok {
		return false, nil
	}

	if err := fsys.MkdirAll(filepath.Dir(iniPath), 0755); err != nil {
		return false, err
	}

	sections, order := parseINI(fsys, iniPath)

	for section, keys := range settings.sections {
		if _, exists := sections[section]; !exists {
			sections[section] = map[string]string{}
			order.sections = append(order.sections, section)
		}
		for key, value := range keys {
			if _, exists := sections[section][key]; !exists {
				order.keys[section] = append(order.keys[section], key)
			}
			sections[section][key] = value
		}
	}

	var b strings.Builder
	for _, section := range order.sections {
		b.WriteString("[" + section + "]\n")
		for _, key := range order.keys[section] {
			b.WriteString(key + "=" + sections[section][key] + "\n")
		}
		b.WriteString("\n")
	}

	if err := fsys.WriteFile(iniPath, []byte(b.String()), 0644); err != nil {
		return false, err
	}
	return true, nil
}

// iniOrder preserves section and key ordering across a read-modify-write
// cycle so unrelated user edits keep their place.
type iniOrder struct {
	sections []string
	keys     map[string][]string
}

func parseINI(fsys types.FS, path string) (map[string]map[string]string, iniOrder) {
	sections := make(map[string]map[string]string)
	order := iniOrder{keys: make(map[string][]string)}

	data, err := fsys.ReadFile(path)
	if err != nil {
		return sections, order
	}

	current := ""
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]"):
			current = trimmed[1 : len(trimmed)-1]
			if _, exists := sections[current]; !exists {
				sections[current] = map[string]string{}
				order.sections = append(order.sections, current)
			}
		case current != "" && strings.Contains(trimmed, "="):
			key, value, _ := strings.Cut(trimmed, "=")
			key = strings.TrimSpace(key)
			if _, exists := sections[current][key]; !exists {
				order.keys[current] = append(order.keys[current], key)
			}
			sections[current][key] = strings.TrimSpace(value)
		}
	}
	return sections, order
}
