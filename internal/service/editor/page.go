package editor

import (
	"menueditor-backend/internal/backup"
	"menueditor-backend/internal/config"
	"menueditor-backend/internal/menu"
)

// Permission guards the editor and its search endpoint.
const Permission = "files:config"

// Entry is the editor's entry in the host's extension menu.
type Entry struct {
	Label      string `json:"label"`
	Icon       string `json:"icon"`
	Permission string `json:"permission"`
}

// MenuEntry returns the editor's extension menu entry.
func MenuEntry() Entry {
	return Entry{Label: "Menu Editor", Icon: "fa:bars", Permission: Permission}
}

// BackupSummary is the backup policy as shown to the editor.
type BackupSummary struct {
	Enabled bool   `json:"enabled"`
	Folder  string `json:"folder,omitempty"`
	Keep    int    `json:"keep,omitempty"`
}

// PageConfig is the extension configuration handed to the editor.
type PageConfig struct {
	Fields  []config.EditorField `json:"fields"`
	Backups BackupSummary        `json:"backups"`
}

// Page is everything the editor needs to render.
type Page struct {
	Menus   *menu.Document  `json:"menus"`
	Config  PageConfig      `json:"config"`
	Entry   Entry           `json:"entry"`
	Backups []backup.Record `json:"backups,omitempty"`
}
