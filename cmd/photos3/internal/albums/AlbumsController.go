package albums

import (
	"log/slog"
	"net/http"

	"github.com/adampresley/adamgokit/httphelpers"
	"github.com/adampresley/photos3/pkg/models"
	"github.com/adampresley/photos3/pkg/services"
)

type AlbumsHandlers interface {
	AddImage(w http.ResponseWriter, r *http.Request)
	ListImages(w http.ResponseWriter, r *http.Request)
	RemoveImage(w http.ResponseWriter, r *http.Request)
}

type AlbumsControllerConfig struct {
	AlbumImageService services.AlbumImageServicer
}

type AlbumsController struct {
	albumImageService services.AlbumImageServicer
}

type albumImagesResponse struct {
	Name      string   `json:"name"`
	Checksums []string `json:"checksums"`
}

func NewAlbumsController(config AlbumsControllerConfig) AlbumsController {
	return AlbumsController{
		albumImageService: config.AlbumImageService,
	}
}

/*
GET /albums/{name}/images
*/
func (c AlbumsController) ListImages(w http.ResponseWriter, r *http.Request) {
	var (
		err     error
		records []models.AlbumImage
	)

	name := r.PathValue("name")

	if records, err = c.albumImageService.ListImages(name); err != nil {
		slog.Error("error listing album images", "error", err, "album", name)
		httphelpers.TextInternalServerError(w, "Error listing album images")
		return
	}

	response := albumImagesResponse{
		Name:      name,
		Checksums: []string{},
	}

	for _, record := range records {
		response.Checksums = append(response.Checksums, record.Checksum)
	}

	httphelpers.JsonOK(w, response)
}

/*
PUT /albums/{name}/images/{checksum}
*/
func (c AlbumsController) AddImage(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	checksum := r.PathValue("checksum")

	if err := c.albumImageService.Add(name, checksum); err != nil {
		slog.Error("error adding image to album", "error", err, "album", name, "checksum", checksum)
		httphelpers.TextInternalServerError(w, "Error adding image to album")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

/*
DELETE /albums/{name}/images/{checksum}
*/
func (c AlbumsController) RemoveImage(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	checksum := r.PathValue("checksum")

	if err := c.albumImageService.Remove(name, checksum); err != nil {
		slog.Error("error removing image from album", "error", err, "album", name, "checksum", checksum)
		httphelpers.TextInternalServerError(w, "Error removing image from album")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
