package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/memberd/memberd/internal/groups"
	"github.com/memberd/memberd/internal/models"
	"github.com/memberd/memberd/internal/notify"
	"github.com/memberd/memberd/internal/settings"
	log "github.com/sirupsen/logrus"
)

// MemberHandler manages group membership endpoints.
type MemberHandler struct {
	store    *groups.Store
	groupsH  *GroupHandler
	sender   notify.Sender
	settings *settings.Store
}

// NewMemberHandler constructs a MemberHandler.
func NewMemberHandler(store *groups.Store, sender notify.Sender, settingStore *settings.Store) *MemberHandler {
	return &MemberHandler{
		store:    store,
		groupsH:  NewGroupHandler(store),
		sender:   sender,
		settings: settingStore,
	}
}

// addMemberRequest defines the request body for adding a member.
type addMemberRequest struct {
	UserID uint64 `json:"user_id"`
}

// Add enrolls a user in the group. Requires group admin.
func (h *MemberHandler) Add(c *gin.Context) {
	group, ok := h.groupsH.requireGroupAdmin(c)
	if !ok {
		return
	}
	var body addMemberRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil || body.UserID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	member, errAdd := h.store.AddMember(c.Request.Context(), group.ID, body.UserID)
	if errAdd != nil {
		switch {
		case errors.Is(errAdd, groups.ErrDuplicateMembership):
			c.JSON(http.StatusConflict, gin.H{"error": "already a member"})
		case errors.Is(errAdd, groups.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "add member failed"})
		}
		return
	}
	c.JSON(http.StatusCreated, formatMember(member))
}

// List returns the group's accepted members in canonical order, or every
// live membership when all=true. Requires group admin for the full list.
func (h *MemberHandler) List(c *gin.Context) {
	all := strings.EqualFold(strings.TrimSpace(c.Query("all")), "true")

	var (
		group *models.Group
		ok    bool
	)
	if all {
		group, ok = h.groupsH.requireGroupAdmin(c)
	} else {
		group, ok = h.groupsH.loadVisibleGroup(c)
	}
	if !ok {
		return
	}

	var (
		members []models.GroupMember
		errList error
	)
	if all {
		members, errList = h.store.Members(c.Request.Context(), group.ID)
	} else {
		members, errList = h.store.AcceptedMembers(c.Request.Context(), group.ID)
	}
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list members failed"})
		return
	}
	out := make([]gin.H, 0, len(members))
	for i := range members {
		out = append(out, formatMember(&members[i]))
	}
	c.JSON(http.StatusOK, gin.H{"members": out})
}

// Remove ends a user's membership. Requires group admin.
func (h *MemberHandler) Remove(c *gin.Context) {
	group, ok := h.groupsH.requireGroupAdmin(c)
	if !ok {
		return
	}
	userID, okID := parseIDParam(c, "user_id")
	if !okID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	if errRemove := h.store.RemoveMember(c.Request.Context(), group.ID, userID); errRemove != nil {
		if errors.Is(errRemove, groups.ErrMembershipNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not a member"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "remove member failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": userID})
}

// setStatusRequest defines the request body for status changes.
type setStatusRequest struct {
	Status string `json:"status"`
}

// SetStatus changes a membership's request status. Requires group admin.
func (h *MemberHandler) SetStatus(c *gin.Context) {
	group, ok := h.groupsH.requireGroupAdmin(c)
	if !ok {
		return
	}
	userID, okID := parseIDParam(c, "user_id")
	if !okID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	var body setStatusRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	member, errSet := h.store.SetStatus(c.Request.Context(), group.ID, userID, body.Status)
	if errSet != nil {
		switch {
		case errors.Is(errSet, groups.ErrInvalidStatus):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		case errors.Is(errSet, groups.ErrMembershipNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "not a member"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "set status failed"})
		}
		return
	}
	c.JSON(http.StatusOK, formatMember(member))
}

// setAdminRequest defines the request body for admin role changes.
type setAdminRequest struct {
	IsAdmin bool    `json:"is_admin"`
	Title   *string `json:"title"`
	Order   *int    `json:"order"`
}

// SetAdmin grants or revokes the admin role on a membership. Requires
// group admin.
func (h *MemberHandler) SetAdmin(c *gin.Context) {
	group, ok := h.groupsH.requireGroupAdmin(c)
	if !ok {
		return
	}
	userID, okID := parseIDParam(c, "user_id")
	if !okID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	var body setAdminRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	member, errSet := h.store.SetAdmin(c.Request.Context(), group.ID, userID, body.IsAdmin, body.Title, body.Order)
	if errSet != nil {
		if errors.Is(errSet, groups.ErrMembershipNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not a member"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "set admin failed"})
		return
	}
	c.JSON(http.StatusOK, formatMember(member))
}

// Records returns the membership history for the group, optionally scoped
// to one user with user_id. Requires group admin.
func (h *MemberHandler) Records(c *gin.Context) {
	group, ok := h.groupsH.requireGroupAdmin(c)
	if !ok {
		return
	}
	var userID uint64
	if raw := strings.TrimSpace(c.Query("user_id")); raw != "" {
		parsed, okID := parseQueryID(raw)
		if !okID {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
			return
		}
		userID = parsed
	}

	records, errList := h.store.MemberRecords(c.Request.Context(), group.ID, userID)
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list records failed"})
		return
	}
	out := make([]gin.H, 0, len(records))
	for _, record := range records {
		out = append(out, gin.H{
			"id":          record.ID,
			"group_id":    record.GroupID,
			"user_id":     record.UserID,
			"is_admin":    record.IsAdmin,
			"admin_title": record.AdminTitle,
			"admin_order": record.AdminOrder,
			"status":      record.RequestStatus,
			"joined":      record.Joined,
			"recorded_at": record.RecordedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"records": out})
}

// Emails returns the deliverable member addresses. Requires group admin.
func (h *MemberHandler) Emails(c *gin.Context) {
	group, ok := h.groupsH.requireGroupAdmin(c)
	if !ok {
		return
	}
	emails, errList := h.store.MemberEmails(c.Request.Context(), group.ID)
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list emails failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"emails": emails})
}

// notifyRequest defines the request body for a member mail-out.
type notifyRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
	HTML    bool   `json:"html"`
}

// Notify sends a message to every deliverable member address, BCC'd behind
// the group's list address. Requires group admin.
func (h *MemberHandler) Notify(c *gin.Context) {
	group, ok := h.groupsH.requireGroupAdmin(c)
	if !ok {
		return
	}
	var body notifyRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(body.Subject) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing subject"})
		return
	}

	emails, errList := h.store.MemberEmails(c.Request.Context(), group.ID)
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list emails failed"})
		return
	}

	domain := h.settings.String(settings.MailDomainKey, settings.DefaultMailDomain)
	msg := notify.Compose(group, domain, body.Subject, body.Body, body.HTML, emails)
	if errSend := h.sender.Send(c.Request.Context(), msg); errSend != nil {
		log.WithError(errSend).WithFields(log.Fields{"group": group.Slug}).Error("member mail-out failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "send failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipients": len(emails)})
}

func formatMember(member *models.GroupMember) gin.H {
	out := gin.H{
		"group_id":    member.GroupID,
		"user_id":     member.UserID,
		"is_admin":    member.IsAdmin,
		"admin_title": member.AdminTitle,
		"admin_order": member.AdminOrder,
		"status":      member.RequestStatus,
		"joined":      member.Joined,
	}
	if member.User != nil {
		out["username"] = member.User.Username
		out["name"] = member.User.Name
	}
	return out
}
