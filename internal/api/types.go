package api

import (
	"fmt"
	"strconv"
)

// Entry types reported by the device.
const (
	TypeDocument   = "DocumentType"
	TypeCollection = "CollectionType"
)

// DocumentInfo is the metadata record the device returns for one entry
// of a folder listing. Field names follow the device JSON exactly,
// including the firmware's "VissibleName" misspelling.
type DocumentInfo struct {
	ID             string   `json:"ID"`
	VissibleName   string   `json:"VissibleName"`
	Type           string   `json:"Type"`
	Parent         string   `json:"Parent"`
	Bookmarked     bool     `json:"Bookmarked"`
	ModifiedClient string   `json:"ModifiedClient"`
	Version        int      `json:"Version"`
	Tags           []string `json:"tags,omitempty"`

	// Document-only fields; absent on folders.
	FileType    string `json:"fileType,omitempty"`
	PageCount   int    `json:"pageCount,omitempty"`
	SizeInBytes string `json:"sizeInBytes,omitempty"`
	CurrentPage int    `json:"CurrentPage,omitempty"`
}

// IsFolder reports whether the entry is a folder.
func (d DocumentInfo) IsFolder() bool { return d.Type == TypeCollection }

// Size returns sizeInBytes as an integer. The device sends it as a
// string; folders have no size and report 0.
func (d DocumentInfo) Size() (int64, error) {
	if d.SizeInBytes == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(d.SizeInBytes, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing sizeInBytes %q: %w", d.SizeInBytes, err)
	}
	return n, nil
}
