package upload

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/specialisthub/internal/config"
)

// SignatureHandler serves GET /api/upload/cloudinary-signature, a short-lived
// credential for direct browser uploads.
func SignatureHandler(cfg config.CloudinaryConfig, now func() time.Time) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !cfg.Enabled() {
			return echo.NewHTTPError(http.StatusInternalServerError, "Cloudinary is not configured")
		}

		timestamp := now().Unix()
		signature, err := Sign(map[string]string{
			"folder":    cfg.Folder,
			"timestamp": strconv.FormatInt(timestamp, 10),
		}, cfg.APISecret)
		if err != nil {
			return err
		}

		return c.JSON(http.StatusOK, echo.Map{
			"status": "success",
			"data": echo.Map{
				"cloudName": cfg.CloudName,
				"apiKey":    cfg.APIKey,
				"timestamp": timestamp,
				"folder":    cfg.Folder,
				"signature": signature,
			},
		})
	}
}

// RegisterRoutes mounts the upload endpoints on the /api group.
func RegisterRoutes(api *echo.Group, cfg config.CloudinaryConfig) {
	api.GET("/upload/cloudinary-signature", SignatureHandler(cfg, time.Now))
}
