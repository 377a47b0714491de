package models

import "time"

// ExportFile describes an exported document saved in the output directory.
type ExportFile struct {
	Name      string    `json:"name"`
	Checksum  string    `json:"checksum"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}
