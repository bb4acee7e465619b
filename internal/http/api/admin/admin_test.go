package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/memberd/memberd/internal/config"
	"github.com/memberd/memberd/internal/db"
	"github.com/memberd/memberd/internal/groups"
	"github.com/memberd/memberd/internal/models"
	"github.com/memberd/memberd/internal/notify"
	"github.com/memberd/memberd/internal/profiles"
	"github.com/memberd/memberd/internal/ratelimit"
	"github.com/memberd/memberd/internal/security"
	"github.com/memberd/memberd/internal/settings"
	"gorm.io/gorm"
)

var testJWT = config.JWTConfig{Secret: "test-secret", Expiry: time.Hour}

func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, errOpen := db.Open("file:" + filepath.Join(t.TempDir(), "memberd-test.db"))
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	if errSeed := settings.Seed(conn); errSeed != nil {
		t.Fatalf("seed settings: %v", errSeed)
	}

	settingStore := settings.NewStore(conn)
	if errRefresh := settingStore.Refresh(context.Background()); errRefresh != nil {
		t.Fatalf("refresh settings: %v", errRefresh)
	}
	groupStore := groups.NewStore(conn, groups.NewSnapshotRecorder())

	engine := gin.New()
	RegisterAdminRoutes(engine, Deps{
		DB:       conn,
		JWT:      testJWT,
		Groups:   groupStore,
		Profiles: profiles.NewService(conn, groupStore),
		Settings: settingStore,
		Limiter:  ratelimit.NewMemoryLimiter(time.Minute),
		Sender:   notify.LogSender{},
	})
	return engine, conn
}

func seedUser(t *testing.T, conn *gorm.DB, username, password string, superuser bool) *models.User {
	t.Helper()
	hash := ""
	if password != "" {
		var errHash error
		hash, errHash = security.HashPassword(password)
		if errHash != nil {
			t.Fatalf("hash password: %v", errHash)
		}
	}
	user := models.User{
		Username:  username,
		Email:     username + "@example.org",
		Password:  hash,
		Superuser: superuser,
		Active:    true,
	}
	if errCreate := conn.Create(&user).Error; errCreate != nil {
		t.Fatalf("create user %s: %v", username, errCreate)
	}
	return &user
}

func doJSON(t *testing.T, engine *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload []byte
	if body != nil {
		var errMarshal error
		payload, errMarshal = json.Marshal(body)
		if errMarshal != nil {
			t.Fatalf("marshal body: %v", errMarshal)
		}
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.RemoteAddr = "10.0.0.1:12345"
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func loginToken(t *testing.T, engine *gin.Engine, username, password string) string {
	t.Helper()
	rec := doJSON(t, engine, http.MethodPost, "/v0/admin/login", "", gin.H{
		"username": username,
		"password": password,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Token string `json:"token"`
	}
	if errDecode := json.Unmarshal(rec.Body.Bytes(), &out); errDecode != nil {
		t.Fatalf("decode login response: %v", errDecode)
	}
	return out.Token
}

func TestLoginAndAuthRequired(t *testing.T) {
	engine, conn := newTestRouter(t)
	seedUser(t, conn, "root", "secret", true)

	rec := doJSON(t, engine, http.MethodGet, "/v0/admin/groups", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d, want 401", rec.Code)
	}

	rec = doJSON(t, engine, http.MethodPost, "/v0/admin/login", "", gin.H{
		"username": "root", "password": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad password status = %d, want 401", rec.Code)
	}

	token := loginToken(t, engine, "root", "secret")
	rec = doJSON(t, engine, http.MethodGet, "/v0/admin/groups", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("authenticated status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestLoginRateLimit(t *testing.T) {
	engine, conn := newTestRouter(t)
	seedUser(t, conn, "root", "secret", true)

	var last int
	for i := 0; i < settings.DefaultLoginRateLimit+1; i++ {
		rec := doJSON(t, engine, http.MethodPost, "/v0/admin/login", "", gin.H{
			"username": "root", "password": "wrong",
		})
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("final login status = %d, want 429", last)
	}
}

func TestGroupLifecycleOverHTTP(t *testing.T) {
	engine, conn := newTestRouter(t)
	seedUser(t, conn, "root", "secret", true)
	member := seedUser(t, conn, "alice", "secret", false)
	token := loginToken(t, engine, "root", "secret")

	rec := doJSON(t, engine, http.MethodPost, "/v0/admin/groups", token, gin.H{
		"name": "Ottawa Chapter",
		"kind": models.KindCommunity,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create group status = %d, body %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID   uint64 `json:"id"`
		Slug string `json:"slug"`
	}
	if errDecode := json.Unmarshal(rec.Body.Bytes(), &created); errDecode != nil {
		t.Fatalf("decode group: %v", errDecode)
	}
	if created.Slug != "ottawa-chapter" {
		t.Fatalf("slug = %s, want ottawa-chapter", created.Slug)
	}

	base := fmt.Sprintf("/v0/admin/groups/%d", created.ID)

	rec = doJSON(t, engine, http.MethodPost, base+"/members", token, gin.H{"user_id": member.ID})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add member status = %d, body %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, engine, http.MethodPost, base+"/members", token, gin.H{"user_id": member.ID})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate member status = %d, want 409", rec.Code)
	}

	rec = doJSON(t, engine, http.MethodGet, base+"/members", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list members status = %d", rec.Code)
	}
	var listed struct {
		Members []struct {
			UserID uint64 `json:"user_id"`
		} `json:"members"`
	}
	if errDecode := json.Unmarshal(rec.Body.Bytes(), &listed); errDecode != nil {
		t.Fatalf("decode members: %v", errDecode)
	}
	if len(listed.Members) != 2 {
		t.Fatalf("member count = %d, want creator plus alice", len(listed.Members))
	}

	rec = doJSON(t, engine, http.MethodPost, base+"/notify", token, gin.H{
		"subject": "Hello",
		"body":    "First meeting Tuesday.",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("notify status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, engine, http.MethodDelete, base, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete group status = %d, body %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, engine, http.MethodGet, base, token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("deleted group status = %d, want 404", rec.Code)
	}
}

func TestHiddenGroupIsNotFoundForOutsiders(t *testing.T) {
	engine, conn := newTestRouter(t)
	seedUser(t, conn, "root", "secret", true)
	seedUser(t, conn, "outsider", "secret", false)
	rootToken := loginToken(t, engine, "root", "secret")

	rec := doJSON(t, engine, http.MethodPost, "/v0/admin/groups", rootToken, gin.H{
		"name":       "Steering Committee",
		"kind":       models.KindProject,
		"visibility": models.VisibilityMembers,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create group status = %d, body %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID uint64 `json:"id"`
	}
	if errDecode := json.Unmarshal(rec.Body.Bytes(), &created); errDecode != nil {
		t.Fatalf("decode group: %v", errDecode)
	}

	outsiderToken := loginToken(t, engine, "outsider", "secret")
	rec = doJSON(t, engine, http.MethodGet, fmt.Sprintf("/v0/admin/groups/%d", created.ID), outsiderToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("outsider status = %d, want 404", rec.Code)
	}
	rec = doJSON(t, engine, http.MethodGet, fmt.Sprintf("/v0/admin/groups/%d", created.ID), rootToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("creator status = %d, want 200", rec.Code)
	}
}

func TestEmailConfirmationPromotesBulk(t *testing.T) {
	engine, conn := newTestRouter(t)
	seedUser(t, conn, "root", "secret", true)
	token := loginToken(t, engine, "root", "secret")

	// Placeholder imported from a mailing list, sharing the verified
	// address of a registered account.
	placeholder := seedUser(t, conn, "list-import", "", false)
	registered := seedUser(t, conn, "bob", "secret", false)
	if errUpdate := conn.Model(&models.User{}).
		Where("id IN ?", []uint64{placeholder.ID, registered.ID}).
		Update("email", "bob@example.org").Error; errUpdate != nil {
		t.Fatalf("align emails: %v", errUpdate)
	}

	rec := doJSON(t, engine, http.MethodPost, "/v0/admin/groups", token, gin.H{
		"name": "Newsletter",
		"kind": models.KindCommunity,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create group status = %d", rec.Code)
	}
	var group struct {
		ID uint64 `json:"id"`
	}
	if errDecode := json.Unmarshal(rec.Body.Bytes(), &group); errDecode != nil {
		t.Fatalf("decode group: %v", errDecode)
	}
	rec = doJSON(t, engine, http.MethodPost, fmt.Sprintf("/v0/admin/groups/%d/members", group.ID), token, gin.H{
		"user_id": placeholder.ID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add placeholder status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, engine, http.MethodPost, fmt.Sprintf("/v0/admin/users/%d/confirmations", registered.ID), token, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("request confirmation status = %d, body %s", rec.Code, rec.Body.String())
	}
	var confirmation struct {
		Token string `json:"token"`
	}
	if errDecode := json.Unmarshal(rec.Body.Bytes(), &confirmation); errDecode != nil {
		t.Fatalf("decode confirmation: %v", errDecode)
	}

	rec = doJSON(t, engine, http.MethodPost, "/v0/admin/confirmations/"+confirmation.Token, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm status = %d, body %s", rec.Code, rec.Body.String())
	}

	var membership models.GroupMember
	if errFind := conn.Where("group_id = ? AND user_id = ?", group.ID, registered.ID).
		First(&membership).Error; errFind != nil {
		t.Fatalf("promoted membership missing: %v", errFind)
	}
	if membership.RequestStatus != models.StatusAccepted {
		t.Fatalf("promoted status = %s, want %s", membership.RequestStatus, models.StatusAccepted)
	}

	var placeholderCount int64
	if errCount := conn.Model(&models.User{}).
		Where("id = ?", placeholder.ID).
		Count(&placeholderCount).Error; errCount != nil {
		t.Fatalf("count placeholder: %v", errCount)
	}
	if placeholderCount != 0 {
		t.Fatal("placeholder user should be removed after promotion")
	}
}

func TestDeleteUserEndsMemberships(t *testing.T) {
	engine, conn := newTestRouter(t)
	seedUser(t, conn, "root", "secret", true)
	member := seedUser(t, conn, "alice", "secret", false)
	token := loginToken(t, engine, "root", "secret")

	rec := doJSON(t, engine, http.MethodPost, "/v0/admin/groups", token, gin.H{
		"name": "Ottawa Chapter",
		"kind": models.KindCommunity,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create group status = %d, body %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID uint64 `json:"id"`
	}
	if errDecode := json.Unmarshal(rec.Body.Bytes(), &created); errDecode != nil {
		t.Fatalf("decode group: %v", errDecode)
	}
	rec = doJSON(t, engine, http.MethodPost, fmt.Sprintf("/v0/admin/groups/%d/members", created.ID), token, gin.H{"user_id": member.ID})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add member status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, engine, http.MethodDelete, fmt.Sprintf("/v0/admin/users/%d", member.ID), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete user status = %d, body %s", rec.Code, rec.Body.String())
	}

	var liveCount int64
	if errCount := conn.Model(&models.GroupMember{}).
		Where("user_id = ?", member.ID).
		Count(&liveCount).Error; errCount != nil {
		t.Fatalf("count memberships: %v", errCount)
	}
	if liveCount != 0 {
		t.Fatalf("live memberships after delete = %d, want 0", liveCount)
	}

	var last models.GroupMemberRecord
	if errFind := conn.Where("user_id = ?", member.ID).
		Order("id DESC").First(&last).Error; errFind != nil {
		t.Fatalf("load last record: %v", errFind)
	}
	if last.RequestStatus != models.StatusEnded {
		t.Fatalf("last record status = %s, want %s", last.RequestStatus, models.StatusEnded)
	}
}

func TestGroupLookupBySlugWithoutKind(t *testing.T) {
	engine, conn := newTestRouter(t)
	seedUser(t, conn, "root", "secret", true)
	token := loginToken(t, engine, "root", "secret")

	rec := doJSON(t, engine, http.MethodPost, "/v0/admin/groups", token, gin.H{
		"name": "Ottawa Chapter",
		"kind": models.KindCommunity,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create group status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, engine, http.MethodGet, "/v0/admin/groups?slug=ottawa-chapter", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("slug lookup status = %d, body %s", rec.Code, rec.Body.String())
	}
	var listed struct {
		Groups []struct {
			Slug string `json:"slug"`
		} `json:"groups"`
	}
	if errDecode := json.Unmarshal(rec.Body.Bytes(), &listed); errDecode != nil {
		t.Fatalf("decode groups: %v", errDecode)
	}
	if len(listed.Groups) != 1 || listed.Groups[0].Slug != "ottawa-chapter" {
		t.Fatalf("slug lookup result = %+v, want single ottawa-chapter", listed.Groups)
	}

	rec = doJSON(t, engine, http.MethodGet, "/v0/admin/groups?slug=no-such-group", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("missing slug status = %d, body %s", rec.Code, rec.Body.String())
	}
	if errDecode := json.Unmarshal(rec.Body.Bytes(), &listed); errDecode != nil {
		t.Fatalf("decode groups: %v", errDecode)
	}
	if len(listed.Groups) != 0 {
		t.Fatalf("missing slug result = %+v, want empty", listed.Groups)
	}
}
