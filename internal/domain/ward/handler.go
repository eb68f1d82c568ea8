package ward

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Lifecycle operations – doctors and nurses
	lifecycle := api.Group("", auth.RequireRole("doctor", "nurse"))
	lifecycle.POST("/wards/beds/allocate", h.AllocateBed)
	lifecycle.POST("/wards/beds/transfer", h.TransferPatient)
	lifecycle.POST("/wards/beds/discharge", h.DischargePatient)
	lifecycle.GET("/wards/beds/available", h.ListAvailableBeds)
	lifecycle.GET("/wards/beds/ward/:wardId", h.ListBedsByWard)
	lifecycle.GET("/wards/beds/patient/:patientId", h.FindBedByPatient)
	lifecycle.GET("/wards", h.ListWards)
	lifecycle.GET("/wards/:id", h.GetWard)

	// Provisioning – admin only
	admin := api.Group("", auth.RequireRole("admin"))
	admin.POST("/wards", h.CreateWard)
	admin.POST("/wards/:id/beds", h.CreateBed)
	admin.PATCH("/wards/beds/:id/maintenance", h.SetMaintenance)
}

// mapLifecycleError translates service errors onto HTTP statuses.
// Unrecognized errors are storage faults and must not leak detail.
func mapLifecycleError(err error) error {
	switch {
	case errors.Is(err, ErrBedNotFound), errors.Is(err, ErrWardNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrBedNotAvailable),
		errors.Is(err, ErrBedNotOccupied),
		errors.Is(err, ErrInvalidTransfer):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "storage failure")
	}
}

func (h *Handler) AllocateBed(c echo.Context) error {
	var body struct {
		BedID     uuid.UUID `json:"bed_id"`
		PatientID uuid.UUID `json:"patient_id"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if body.BedID == uuid.Nil || body.PatientID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "bed_id and patient_id are required")
	}
	bed, err := h.svc.Allocate(c.Request().Context(), body.BedID, body.PatientID)
	if err != nil {
		return mapLifecycleError(err)
	}
	return c.JSON(http.StatusOK, bed)
}

func (h *Handler) TransferPatient(c echo.Context) error {
	var body struct {
		CurrentBedID uuid.UUID `json:"current_bed_id"`
		NewBedID     uuid.UUID `json:"new_bed_id"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if body.CurrentBedID == uuid.Nil || body.NewBedID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "current_bed_id and new_bed_id are required")
	}
	bed, err := h.svc.Transfer(c.Request().Context(), body.CurrentBedID, body.NewBedID)
	if err != nil {
		return mapLifecycleError(err)
	}
	return c.JSON(http.StatusOK, bed)
}

func (h *Handler) DischargePatient(c echo.Context) error {
	var body struct {
		BedID uuid.UUID `json:"bed_id"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if body.BedID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "bed_id is required")
	}
	bed, err := h.svc.Discharge(c.Request().Context(), body.BedID)
	if err != nil {
		return mapLifecycleError(err)
	}
	return c.JSON(http.StatusOK, bed)
}

func (h *Handler) ListAvailableBeds(c echo.Context) error {
	bedType := c.QueryParam("wardType")
	if bedType == "" {
		bedType = c.QueryParam("type")
	}
	beds, err := h.svc.ListAvailableBeds(c.Request().Context(), bedType)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if beds == nil {
		beds = []*Bed{}
	}
	return c.JSON(http.StatusOK, beds)
}

func (h *Handler) ListBedsByWard(c echo.Context) error {
	wardID, err := uuid.Parse(c.Param("wardId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid ward id")
	}
	beds, err := h.svc.ListBedsByWard(c.Request().Context(), wardID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "storage failure")
	}
	if beds == nil {
		beds = []*Bed{}
	}
	return c.JSON(http.StatusOK, beds)
}

// FindBedByPatient returns a list of zero or one bed.
func (h *Handler) FindBedByPatient(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patientId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	bed, err := h.svc.FindBedByPatient(c.Request().Context(), patientID)
	if err != nil {
		if errors.Is(err, ErrBedNotFound) {
			return c.JSON(http.StatusOK, []*Bed{})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "storage failure")
	}
	return c.JSON(http.StatusOK, []*Bed{bed})
}

func (h *Handler) ListWards(c echo.Context) error {
	wards, err := h.svc.ListWards(c.Request().Context(), c.QueryParam("type"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if wards == nil {
		wards = []*Ward{}
	}
	return c.JSON(http.StatusOK, wards)
}

func (h *Handler) GetWard(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	w, err := h.svc.GetWard(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrWardNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "ward not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "storage failure")
	}
	return c.JSON(http.StatusOK, w)
}

func (h *Handler) CreateWard(c echo.Context) error {
	var w Ward
	if err := c.Bind(&w); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateWard(c.Request().Context(), &w); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, w)
}

func (h *Handler) CreateBed(c echo.Context) error {
	wardID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid ward id")
	}
	var b Bed
	if err := c.Bind(&b); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	b.WardID = wardID
	if err := h.svc.CreateBed(c.Request().Context(), &b); err != nil {
		if errors.Is(err, ErrWardNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "ward not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) SetMaintenance(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body struct {
		Down bool `json:"down"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	bed, err := h.svc.SetMaintenance(c.Request().Context(), id, body.Down)
	if err != nil {
		if errors.Is(err, ErrBedNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "bed not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, bed)
}
