package models

import (
	"fmt"
)

var (
	ErrAlbumImageNotFound = fmt.Errorf("album image not found")
)

// AlbumImage records that the image with Checksum belongs to the album Name.
type AlbumImage struct {
	Name     string `json:"name" db:"name" dynamodbav:"name"`
	Checksum string `json:"checksum" db:"checksum" dynamodbav:"checksum"`
}
