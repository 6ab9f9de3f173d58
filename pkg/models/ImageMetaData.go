package models

import (
	"fmt"
)

var (
	ErrImageMetaDataNotFound = fmt.Errorf("image metadata not found")
)

/*
ImageMetaData is keyed by the content checksum of an image. Exif and
Info are opaque to the store.
*/
type ImageMetaData struct {
	Checksum string       `json:"checksum"`
	Exif     JSONDocument `json:"exif"`
	Info     JSONDocument `json:"info"`
}
