package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"cable-planner/internal/common/logger"
	"cable-planner/internal/planner/export"
	"cable-planner/internal/planner/geometry"
	"cable-planner/internal/planner/models"
	"cable-planner/internal/planner/service"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

// ============================================================
// Planner Handler
// ============================================================

type PlannerHandler struct {
	ws  *service.Workspace
	log *zap.Logger
	now func() time.Time
}

func NewPlannerHandler(ws *service.Workspace, log *zap.Logger) *PlannerHandler {
	if log == nil {
		log = logger.L()
	}
	return &PlannerHandler{
		ws:  ws,
		log: log.With(zap.String("component", "handlers")),
		now: time.Now,
	}
}

// Register mounts the planner API on r.
func (h *PlannerHandler) Register(r fiber.Router) {
	r.Get("/project", h.GetProject)
	r.Put("/project", h.ImportProject)
	r.Delete("/project", h.ResetProject)
	r.Get("/project/download", h.DownloadProject)
	r.Post("/project/export", h.ExportProject)
	r.Get("/project/csv", h.ProjectCSV)
	r.Get("/project/svg", h.ProjectSVG)
	r.Get("/project/screenshot", h.ProjectScreenshot)

	r.Post("/image", h.UploadImage)
	r.Delete("/image", h.ClearImage)

	r.Put("/scale", h.SetScale)
	r.Delete("/scale", h.ClearScale)

	r.Get("/settings", h.GetSettings)
	r.Patch("/settings", h.UpdateSettings)

	r.Get("/devices", h.ListDevices)
	r.Post("/devices", h.CreateDevice)
	r.Get("/devices/near", h.FindDevice)
	r.Get("/devices/:id", h.GetDevice)
	r.Patch("/devices/:id", h.UpdateDevice)
	r.Delete("/devices/:id", h.DeleteDevice)

	r.Get("/cables", h.ListCables)
	r.Post("/cables", h.CreateCable)
	r.Get("/cables/:id", h.GetCable)
	r.Patch("/cables/:id", h.UpdateCable)
	r.Delete("/cables/:id", h.DeleteCable)

	r.Get("/summary", h.Summary)

	r.Post("/storage/save", h.SaveSlot)
	r.Post("/storage/load", h.LoadSlot)
	r.Delete("/storage", h.ClearSlot)
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidScale),
		errors.Is(err, models.ErrInvalidLength),
		errors.Is(err, models.ErrInvalidSettings),
		errors.Is(err, models.ErrFileParse),
		errors.Is(err, models.ErrImageDecode):
		return fiber.StatusBadRequest
	case errors.Is(err, models.ErrScaleNotSet),
		errors.Is(err, models.ErrDuplicateName):
		return fiber.StatusConflict
	case errors.Is(err, models.ErrImageTooLarge):
		return fiber.StatusRequestEntityTooLarge
	case errors.Is(err, models.ErrInvalidReference),
		errors.Is(err, models.ErrVersionMismatch),
		errors.Is(err, models.ErrInvalidProjectData):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, service.ErrNoStorage):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func (h *PlannerHandler) fail(c fiber.Ctx, err error) error {
	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		h.log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func badRequest(c fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": msg,
	})
}

func notFound(c fiber.Ctx, what string) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error": what + " not found",
	})
}

// upload returns the "file" form field for multipart requests and the raw
// body otherwise.
func upload(c fiber.Ctx) (io.Reader, func(), error) {
	if !strings.HasPrefix(c.Get("Content-Type"), fiber.MIMEMultipartForm) {
		return bytes.NewReader(c.Body()), func() {}, nil
	}
	file, err := c.FormFile("file")
	if err != nil {
		return nil, nil, err
	}
	f, err := file.Open()
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

// ============================================================
// Project
// ============================================================

func (h *PlannerHandler) GetProject(c fiber.Ctx) error {
	return c.JSON(h.ws.Snapshot())
}

// ImportProject replaces the project with the uploaded project file.
func (h *PlannerHandler) ImportProject(c fiber.Ctx) error {
	r, done, err := upload(c)
	if err != nil {
		return badRequest(c, "file required in multipart/form-data")
	}
	defer done()

	if err := h.ws.ImportFile(c.Context(), r); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(h.ws.Snapshot())
}

func (h *PlannerHandler) ResetProject(c fiber.Ctx) error {
	h.ws.Reset(c.Context())
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *PlannerHandler) DownloadProject(c fiber.Ctx) error {
	raw, err := json.MarshalIndent(h.ws.Snapshot(), "", "  ")
	if err != nil {
		return h.fail(c, err)
	}
	c.Attachment(export.ProjectFilename(h.now()))
	c.Type("json")
	return c.Send(raw)
}

// ExportProject writes the project, CSV and screenshot into the export
// directory on the server.
func (h *PlannerHandler) ExportProject(c fiber.Ctx) error {
	paths, err := h.ws.ExportToDisk(c.Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(paths)
}

func (h *PlannerHandler) ProjectCSV(c fiber.Ctx) error {
	out, err := h.ws.CSV()
	if err != nil {
		return h.fail(c, err)
	}
	c.Attachment(export.CSVFilename(h.now()))
	c.Set("Content-Type", "text/csv; charset=utf-8")
	return c.SendString(out)
}

func (h *PlannerHandler) ProjectSVG(c fiber.Ctx) error {
	out, err := h.ws.SVG()
	if err != nil {
		return h.fail(c, err)
	}
	c.Set("Content-Type", "image/svg+xml")
	return c.SendString(out)
}

func (h *PlannerHandler) ProjectScreenshot(c fiber.Ctx) error {
	png, err := h.ws.Screenshot()
	if err != nil {
		return h.fail(c, err)
	}
	c.Attachment(export.ScreenshotFilename(h.now()))
	c.Set("Content-Type", "image/png")
	return c.Send(png)
}

// ============================================================
// Image & scale
// ============================================================

func (h *PlannerHandler) UploadImage(c fiber.Ctx) error {
	r, done, err := upload(c)
	if err != nil {
		return badRequest(c, "file required in multipart/form-data")
	}
	defer done()

	img, err := h.ws.UploadImage(c.Context(), r)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"width":  img.Width,
		"height": img.Height,
	})
}

func (h *PlannerHandler) ClearImage(c fiber.Ctx) error {
	h.ws.ClearImage(c.Context())
	return c.SendStatus(fiber.StatusNoContent)
}

type scaleRequest struct {
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	X2         float64 `json:"x2"`
	Y2         float64 `json:"y2"`
	RealLength float64 `json:"realLength"`
}

func (h *PlannerHandler) SetScale(c fiber.Ctx) error {
	var req scaleRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return badRequest(c, "invalid JSON")
	}
	sc, err := h.ws.SetScale(c.Context(), req.X1, req.Y1, req.X2, req.Y2, req.RealLength)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(sc)
}

func (h *PlannerHandler) ClearScale(c fiber.Ctx) error {
	h.ws.ClearScale(c.Context())
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *PlannerHandler) GetSettings(c fiber.Ctx) error {
	return c.JSON(h.ws.Snapshot().Settings)
}

func (h *PlannerHandler) UpdateSettings(c fiber.Ctx) error {
	var patch models.SettingsPatch
	if err := json.Unmarshal(c.Body(), &patch); err != nil {
		return badRequest(c, "invalid JSON")
	}
	s, err := h.ws.UpdateSettings(c.Context(), patch)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(s)
}

// ============================================================
// Devices
// ============================================================

type deviceRequest struct {
	Type models.DeviceType `json:"type"`
	X    *float64          `json:"x"`
	Y    *float64          `json:"y"`
	Name *string           `json:"name"`
}

func (h *PlannerHandler) ListDevices(c fiber.Ctx) error {
	return c.JSON(h.ws.Devices())
}

func (h *PlannerHandler) CreateDevice(c fiber.Ctx) error {
	var req deviceRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return badRequest(c, "invalid JSON")
	}
	if req.X == nil || req.Y == nil {
		return badRequest(c, "x and y are required")
	}
	name := ""
	if req.Name != nil {
		name = *req.Name
	}

	d, err := h.ws.AddDevice(c.Context(), req.Type, *req.X, *req.Y, name)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(d)
}

func (h *PlannerHandler) GetDevice(c fiber.Ctx) error {
	d, ok := h.ws.Device(c.Params("id"))
	if !ok {
		return notFound(c, "device")
	}
	return c.JSON(d)
}

// FindDevice returns the first device within threshold of (x, y).
func (h *PlannerHandler) FindDevice(c fiber.Ctx) error {
	x, errX := strconv.ParseFloat(c.Query("x"), 64)
	y, errY := strconv.ParseFloat(c.Query("y"), 64)
	if errX != nil || errY != nil {
		return badRequest(c, "x and y query parameters are required")
	}
	threshold := models.SnapDistance
	if v := c.Query("threshold"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil || t < 0 {
			return badRequest(c, "invalid threshold")
		}
		threshold = t
	}

	d, ok := h.ws.FindDevice(x, y, threshold)
	if !ok {
		return notFound(c, "device")
	}
	return c.JSON(d)
}

func (h *PlannerHandler) UpdateDevice(c fiber.Ctx) error {
	var req deviceRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return badRequest(c, "invalid JSON")
	}
	if (req.X == nil) != (req.Y == nil) {
		return badRequest(c, "x and y must be given together")
	}

	id := c.Params("id")
	d, ok := h.ws.Device(id)
	if !ok {
		return notFound(c, "device")
	}
	if req.X != nil {
		if d, ok = h.ws.MoveDevice(c.Context(), id, *req.X, *req.Y); !ok {
			return notFound(c, "device")
		}
	}
	if req.Name != nil {
		if d, ok = h.ws.RenameDevice(c.Context(), id, *req.Name); !ok {
			return notFound(c, "device")
		}
	}
	return c.JSON(d)
}

func (h *PlannerHandler) DeleteDevice(c fiber.Ctx) error {
	ok, removed := h.ws.RemoveDevice(c.Context(), c.Params("id"))
	if !ok {
		return notFound(c, "device")
	}
	return c.JSON(fiber.Map{
		"removedCables": removed,
	})
}

// ============================================================
// Cables
// ============================================================

type cableRequest struct {
	Mode         models.CableMode `json:"mode"`
	FromDeviceID string           `json:"fromDeviceId"`
	ToDeviceID   string           `json:"toDeviceId"`
	Waypoints    []models.Point   `json:"waypoints"`
	Path         string           `json:"path"`
	Orthogonal   bool             `json:"orthogonal"`
	ManualLength float64          `json:"manualLength"`
	Name         string           `json:"name"`
	Color        string           `json:"color"`
}

type cableUpdateRequest struct {
	Name   *string  `json:"name"`
	Offset *float64 `json:"offset"`
	Color  *string  `json:"color"`
}

func (h *PlannerHandler) ListCables(c fiber.Ctx) error {
	return c.JSON(h.ws.Cables())
}

// CreateCable adds a detailed or simple cable. Detailed waypoints come from
// "waypoints" or, when empty, from the "path" polyline string.
func (h *PlannerHandler) CreateCable(c fiber.Ctx) error {
	var req cableRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return badRequest(c, "invalid JSON")
	}

	var (
		cable models.Cable
		err   error
	)
	switch req.Mode {
	case models.CableDetailed:
		waypoints := req.Waypoints
		if len(waypoints) == 0 && req.Path != "" {
			if waypoints, err = geometry.ParsePolyline(req.Path); err != nil {
				return badRequest(c, err.Error())
			}
		}
		if req.Orthogonal {
			from, ok := h.ws.Device(req.FromDeviceID)
			if !ok {
				return h.fail(c, models.ErrInvalidReference)
			}
			waypoints = service.OrthogonalRoute(from.Position(), waypoints)
		}
		cable, err = h.ws.AddDetailedCable(c.Context(), req.FromDeviceID, req.ToDeviceID, waypoints, req.Name, req.Color)
	case models.CableSimple:
		cable, err = h.ws.AddSimpleCable(c.Context(), req.FromDeviceID, req.ToDeviceID, req.ManualLength, req.Name, req.Color)
	default:
		return badRequest(c, "mode must be detailed or simple")
	}
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(cable)
}

func (h *PlannerHandler) GetCable(c fiber.Ctx) error {
	cable, ok := h.ws.Cable(c.Params("id"))
	if !ok {
		return notFound(c, "cable")
	}
	return c.JSON(cable)
}

func (h *PlannerHandler) UpdateCable(c fiber.Ctx) error {
	var req cableUpdateRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return badRequest(c, "invalid JSON")
	}

	cable, found, err := h.ws.UpdateCable(c.Context(), c.Params("id"), service.CableUpdate{
		Name:   req.Name,
		Offset: req.Offset,
		Color:  req.Color,
	})
	if !found {
		return notFound(c, "cable")
	}
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(cable)
}

func (h *PlannerHandler) DeleteCable(c fiber.Ctx) error {
	if !h.ws.RemoveCable(c.Context(), c.Params("id")) {
		return notFound(c, "cable")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *PlannerHandler) Summary(c fiber.Ctx) error {
	return c.JSON(h.ws.Summary())
}

// ============================================================
// Storage slot
// ============================================================

func (h *PlannerHandler) SaveSlot(c fiber.Ctx) error {
	if err := h.ws.SaveSlot(c.Context()); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *PlannerHandler) LoadSlot(c fiber.Ctx) error {
	ok, err := h.ws.LoadSlot(c.Context())
	if err != nil {
		return h.fail(c, err)
	}
	if !ok {
		return notFound(c, "saved project")
	}
	return c.JSON(h.ws.Snapshot())
}

func (h *PlannerHandler) ClearSlot(c fiber.Ctx) error {
	if err := h.ws.ClearSlot(c.Context()); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
