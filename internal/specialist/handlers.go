package specialist

import (
	"context"
	"fmt"
	"math"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/specialisthub/internal/upload"
)

const maxCreateImages = 10

// Handler exposes the Service over echo.
type Handler struct {
	svc      *Service
	uploader upload.Uploader
}

func NewHandler(svc *Service, uploader upload.Uploader) *Handler {
	return &Handler{svc: svc, uploader: uploader}
}

// RegisterRoutes mounts the specialist endpoints on the /api group.
func RegisterRoutes(api *echo.Group, h *Handler) {
	api.GET("/specialists", h.List)
	api.GET("/specialists/:id", h.Get)
	api.POST("/specialists", h.Create)
	api.PUT("/specialists/:id", h.Update)
	api.DELETE("/specialists/:id", h.Delete)
	api.PATCH("/specialists/:id/publish", h.TogglePublish)

	api.GET("/platform-fees", h.PlatformFees)
}

// GET /api/specialists
func (h *Handler) List(c echo.Context) error {
	f := ListFilter{
		Page:   1,
		Limit:  10,
		Status: c.QueryParam("status"),
		Search: c.QueryParam("search"),
	}
	if v, err := strconv.Atoi(c.QueryParam("page")); err == nil && v > 0 {
		f.Page = v
	}
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 {
		f.Limit = v
	}

	items, total, err := h.svc.List(c.Request().Context(), f)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status": "success",
		"data": echo.Map{
			"specialists": items,
			"pagination": echo.Map{
				"page":       f.Page,
				"limit":      f.Limit,
				"total":      total,
				"totalPages": int64(math.Ceil(float64(total) / float64(f.Limit))),
			},
		},
	})
}

// GET /api/specialists/:id
func (h *Handler) Get(c echo.Context) error {
	sp, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "success", "data": echo.Map{"specialist": sp}})
}

// POST /api/specialists
func (h *Handler) Create(c echo.Context) error {
	p, err := DecodePayload(c.Request(), false)
	if err != nil {
		return err
	}
	in, err := p.ToCreate()
	if err != nil {
		return err
	}

	form := c.Request().MultipartForm
	files := func(ctx context.Context) ([]Attachment, error) {
		if form == nil {
			return nil, nil
		}
		headers := form.File["images"]
		if len(headers) > maxCreateImages {
			return nil, Validation(fmt.Sprintf("Too many files. Maximum is %d images", maxCreateImages))
		}
		var out []Attachment
		for _, fh := range headers {
			a, err := h.uploadOne(ctx, fh)
			if err != nil {
				return nil, err
			}
			out = append(out, a)
		}
		return out, nil
	}

	sp, err := h.svc.Create(c.Request().Context(), in, files)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"status": "success", "data": echo.Map{"specialist": sp}})
}

// PUT /api/specialists/:id
func (h *Handler) Update(c echo.Context) error {
	p, err := DecodePayload(c.Request(), true)
	if err != nil {
		return err
	}
	in, err := p.ToUpdate()
	if err != nil {
		return err
	}

	form := c.Request().MultipartForm
	slots := func(ctx context.Context) (map[int]Attachment, error) {
		out := map[int]Attachment{}
		if form == nil {
			return out, nil
		}
		for slot := 0; slot < MaxMediaSlots; slot++ {
			headers := form.File[fmt.Sprintf("image%d", slot)]
			if len(headers) == 0 {
				continue
			}
			a, err := h.uploadOne(ctx, headers[0])
			if err != nil {
				return nil, err
			}
			out[slot] = a
		}
		return out, nil
	}

	sp, err := h.svc.Update(c.Request().Context(), c.Param("id"), in, slots)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "success", "data": echo.Map{"specialist": sp}})
}

// DELETE /api/specialists/:id
func (h *Handler) Delete(c echo.Context) error {
	if err := h.svc.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// PATCH /api/specialists/:id/publish
func (h *Handler) TogglePublish(c echo.Context) error {
	p, err := DecodePayload(c.Request(), true)
	if err != nil {
		return err
	}
	isDraft, err := p.PublishState()
	if err != nil {
		return err
	}
	sp, err := h.svc.TogglePublish(c.Request().Context(), c.Param("id"), isDraft)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "success", "data": echo.Map{"specialist": sp}})
}

// GET /api/platform-fees
func (h *Handler) PlatformFees(c echo.Context) error {
	fees, err := h.svc.PlatformFees(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "success", "data": echo.Map{"platform_fees": fees}})
}

func (h *Handler) uploadOne(ctx context.Context, fh *multipart.FileHeader) (Attachment, error) {
	if h.uploader == nil {
		return Attachment{}, Internal(fmt.Errorf("no uploader configured"))
	}
	f, err := h.uploader.Upload(ctx, fh)
	if err != nil {
		if upload.IsClientError(err) {
			return Attachment{}, Validation(err.Error())
		}
		return Attachment{}, Internal(err)
	}
	return Attachment{
		FileName: f.OriginalName,
		FilePath: f.StoredPath(),
		FileSize: f.Size,
		MimeType: f.MimeType,
	}, nil
}
