package images

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/adampresley/adamgokit/httphelpers"
	"github.com/adampresley/photos3/pkg/models"
	"github.com/adampresley/photos3/pkg/services"
)

type ImagesHandlers interface {
	DeleteImage(w http.ResponseWriter, r *http.Request)
	GetImage(w http.ResponseWriter, r *http.Request)
	GetImageAlbums(w http.ResponseWriter, r *http.Request)
	PutImage(w http.ResponseWriter, r *http.Request)
}

type ImagesControllerConfig struct {
	AlbumImageService    services.AlbumImageServicer
	ImageMetaDataService services.ImageMetaDataServicer
}

type ImagesController struct {
	albumImageService    services.AlbumImageServicer
	imageMetaDataService services.ImageMetaDataServicer
}

type putImageRequest struct {
	Exif models.JSONDocument `json:"exif"`
	Info models.JSONDocument `json:"info"`
}

type imageAlbumsResponse struct {
	Checksum string   `json:"checksum"`
	Albums   []string `json:"albums"`
}

func NewImagesController(config ImagesControllerConfig) ImagesController {
	return ImagesController{
		albumImageService:    config.AlbumImageService,
		imageMetaDataService: config.ImageMetaDataService,
	}
}

/*
GET /images/{checksum}
*/
func (c ImagesController) GetImage(w http.ResponseWriter, r *http.Request) {
	var (
		err    error
		record *models.ImageMetaData
	)

	checksum := r.PathValue("checksum")

	if record, err = c.imageMetaDataService.Get(checksum); err != nil {
		if errors.Is(err, models.ErrImageMetaDataNotFound) {
			httphelpers.WriteText(w, http.StatusNotFound, "image not found")
			return
		}

		slog.Error("error getting image metadata", "error", err, "checksum", checksum)
		httphelpers.TextInternalServerError(w, "Error getting image metadata")
		return
	}

	httphelpers.JsonOK(w, record)
}

/*
PUT /images/{checksum}
*/
func (c ImagesController) PutImage(w http.ResponseWriter, r *http.Request) {
	var (
		err     error
		request putImageRequest
	)

	checksum := r.PathValue("checksum")

	if err = httphelpers.ReadJSONBody(r, &request); err != nil {
		slog.Debug("invalid image metadata body", "error", err, "checksum", checksum)
		httphelpers.WriteText(w, http.StatusBadRequest, "invalid image metadata")
		return
	}

	record := &models.ImageMetaData{
		Checksum: checksum,
		Exif:     request.Exif,
		Info:     request.Info,
	}

	if err = c.imageMetaDataService.Put(record); err != nil {
		slog.Error("error putting image metadata", "error", err, "checksum", checksum)
		httphelpers.TextInternalServerError(w, "Error saving image metadata")
		return
	}

	httphelpers.JsonOK(w, record)
}

/*
DELETE /images/{checksum}
*/
func (c ImagesController) DeleteImage(w http.ResponseWriter, r *http.Request) {
	checksum := r.PathValue("checksum")

	if err := c.imageMetaDataService.Delete(checksum); err != nil {
		slog.Error("error deleting image metadata", "error", err, "checksum", checksum)
		httphelpers.TextInternalServerError(w, "Error deleting image metadata")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

/*
GET /images/{checksum}/albums
*/
func (c ImagesController) GetImageAlbums(w http.ResponseWriter, r *http.Request) {
	var (
		err     error
		records []models.AlbumImage
	)

	checksum := r.PathValue("checksum")

	if records, err = c.albumImageService.ListAlbums(checksum); err != nil {
		slog.Error("error listing albums for image", "error", err, "checksum", checksum)
		httphelpers.TextInternalServerError(w, "Error listing albums")
		return
	}

	response := imageAlbumsResponse{
		Checksum: checksum,
		Albums:   []string{},
	}

	for _, record := range records {
		response.Albums = append(response.Albums, record.Name)
	}

	httphelpers.JsonOK(w, response)
}
