package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/memberd/memberd/internal/models"
	"github.com/memberd/memberd/internal/profiles"
)

// RecordHandler manages profile record endpoints.
type RecordHandler struct {
	profiles *profiles.Service
}

// NewRecordHandler constructs a RecordHandler.
func NewRecordHandler(service *profiles.Service) *RecordHandler {
	return &RecordHandler{profiles: service}
}

// studentRecordRequest defines the request body for education records.
type studentRecordRequest struct {
	Institution string     `json:"institution"`
	Degree      string     `json:"degree"`
	Field       string     `json:"field"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
}

// workRecordRequest defines the request body for employment records.
type workRecordRequest struct {
	Employer  string     `json:"employer"`
	Position  string     `json:"position"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
}

// recordOwner resolves the :id path param and enforces that the
// authenticated user owns the profile or is a superuser.
func recordOwner(c *gin.Context) (uint64, bool) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	viewer := viewerFrom(c)
	if viewer == nil || (viewer.ID != id && !viewer.Superuser) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your profile"})
		return 0, false
	}
	return id, true
}

// CreateStudentRecord adds an education record to the profile.
func (h *RecordHandler) CreateStudentRecord(c *gin.Context) {
	userID, ok := recordOwner(c)
	if !ok {
		return
	}
	var body studentRecordRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	record, errCreate := h.profiles.CreateStudentRecord(c.Request.Context(), userID, profiles.StudentRecordParams{
		Institution: body.Institution,
		Degree:      body.Degree,
		Field:       body.Field,
		StartDate:   body.StartDate,
		EndDate:     body.EndDate,
	})
	if errCreate != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errCreate.Error()})
		return
	}
	c.JSON(http.StatusCreated, formatStudentRecord(record))
}

// ListStudentRecords returns the profile's education records.
func (h *RecordHandler) ListStudentRecords(c *gin.Context) {
	userID, ok := recordOwner(c)
	if !ok {
		return
	}
	records, errList := h.profiles.StudentRecords(c.Request.Context(), userID)
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list records failed"})
		return
	}
	out := make([]gin.H, 0, len(records))
	for i := range records {
		out = append(out, formatStudentRecord(&records[i]))
	}
	c.JSON(http.StatusOK, gin.H{"records": out})
}

// UpdateStudentRecord updates an education record.
func (h *RecordHandler) UpdateStudentRecord(c *gin.Context) {
	userID, ok := recordOwner(c)
	if !ok {
		return
	}
	recordID, okID := parseIDParam(c, "record_id")
	if !okID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid record id"})
		return
	}
	var body studentRecordRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	record, errUpdate := h.profiles.UpdateStudentRecord(c.Request.Context(), userID, recordID, profiles.StudentRecordParams{
		Institution: body.Institution,
		Degree:      body.Degree,
		Field:       body.Field,
		StartDate:   body.StartDate,
		EndDate:     body.EndDate,
	})
	if errUpdate != nil {
		if errors.Is(errUpdate, profiles.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": errUpdate.Error()})
		return
	}
	c.JSON(http.StatusOK, formatStudentRecord(record))
}

// DeleteStudentRecord removes an education record.
func (h *RecordHandler) DeleteStudentRecord(c *gin.Context) {
	userID, ok := recordOwner(c)
	if !ok {
		return
	}
	recordID, okID := parseIDParam(c, "record_id")
	if !okID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid record id"})
		return
	}
	if errDelete := h.profiles.DeleteStudentRecord(c.Request.Context(), userID, recordID); errDelete != nil {
		if errors.Is(errDelete, profiles.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete record failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": recordID})
}

// CreateWorkRecord adds an employment record to the profile.
func (h *RecordHandler) CreateWorkRecord(c *gin.Context) {
	userID, ok := recordOwner(c)
	if !ok {
		return
	}
	var body workRecordRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	record, errCreate := h.profiles.CreateWorkRecord(c.Request.Context(), userID, profiles.WorkRecordParams{
		Employer:  body.Employer,
		Position:  body.Position,
		StartDate: body.StartDate,
		EndDate:   body.EndDate,
	})
	if errCreate != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errCreate.Error()})
		return
	}
	c.JSON(http.StatusCreated, formatWorkRecord(record))
}

// ListWorkRecords returns the profile's employment records.
func (h *RecordHandler) ListWorkRecords(c *gin.Context) {
	userID, ok := recordOwner(c)
	if !ok {
		return
	}
	records, errList := h.profiles.WorkRecords(c.Request.Context(), userID)
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list records failed"})
		return
	}
	out := make([]gin.H, 0, len(records))
	for i := range records {
		out = append(out, formatWorkRecord(&records[i]))
	}
	c.JSON(http.StatusOK, gin.H{"records": out})
}

// UpdateWorkRecord updates an employment record.
func (h *RecordHandler) UpdateWorkRecord(c *gin.Context) {
	userID, ok := recordOwner(c)
	if !ok {
		return
	}
	recordID, okID := parseIDParam(c, "record_id")
	if !okID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid record id"})
		return
	}
	var body workRecordRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	record, errUpdate := h.profiles.UpdateWorkRecord(c.Request.Context(), userID, recordID, profiles.WorkRecordParams{
		Employer:  body.Employer,
		Position:  body.Position,
		StartDate: body.StartDate,
		EndDate:   body.EndDate,
	})
	if errUpdate != nil {
		if errors.Is(errUpdate, profiles.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": errUpdate.Error()})
		return
	}
	c.JSON(http.StatusOK, formatWorkRecord(record))
}

// DeleteWorkRecord removes an employment record.
func (h *RecordHandler) DeleteWorkRecord(c *gin.Context) {
	userID, ok := recordOwner(c)
	if !ok {
		return
	}
	recordID, okID := parseIDParam(c, "record_id")
	if !okID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid record id"})
		return
	}
	if errDelete := h.profiles.DeleteWorkRecord(c.Request.Context(), userID, recordID); errDelete != nil {
		if errors.Is(errDelete, profiles.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete record failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": recordID})
}

func formatStudentRecord(record *models.StudentRecord) gin.H {
	return gin.H{
		"id":          record.ID,
		"user_id":     record.UserID,
		"network_id":  record.NetworkID,
		"institution": record.Institution,
		"degree":      record.Degree,
		"field":       record.Field,
		"start_date":  record.StartDate,
		"end_date":    record.EndDate,
	}
}

func formatWorkRecord(record *models.WorkRecord) gin.H {
	return gin.H{
		"id":         record.ID,
		"user_id":    record.UserID,
		"network_id": record.NetworkID,
		"employer":   record.Employer,
		"position":   record.Position,
		"start_date": record.StartDate,
		"end_date":   record.EndDate,
	}
}
