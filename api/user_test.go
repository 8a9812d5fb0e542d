package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"ledger/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserRouter() *gin.Engine {
	r := gin.New()
	h := NewUserHandler(nil)
	admin := r.Group("", asIdentity("admin-1", models.RoleAdministrator))
	admin.GET("/users", h.ListUsers)
	admin.POST("/users", h.CreateUser)
	admin.PUT("/users/:id", h.UpdateUser)
	admin.DELETE("/users/:id", h.DeleteUser)
	admin.POST("/users/:id/reset-password", h.ResetPassword)
	return r
}

func TestUserHandler_DeleteUser_Self(t *testing.T) {
	setupTestConfig(t)

	r := newUserRouter()
	w := doJSON(r, "DELETE", "/users/admin-1", "")

	// 自删保护在任何数据库操作之前生效
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), CodeCannotDeleteSelf)
}

func TestUserHandler_ResetPassword_Self(t *testing.T) {
	setupTestConfig(t)

	r := newUserRouter()
	w := doJSON(r, "POST", "/users/admin-1/reset-password", "")

	// 同自删保护：在任何数据库操作之前拒绝，不生成临时密码
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), CodeCannotModifySelf)
	assert.NotContains(t, w.Body.String(), "temp_password")
}

func TestUserHandler_UpdateUser_SelfRoleChange(t *testing.T) {
	setupTestConfig(t)

	r := newUserRouter()
	w := doJSON(r, "PUT", "/users/admin-1", `{"role":"viewer"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), CodeCannotModifySelf)
}

func TestUserHandler_UpdateUser_SelfDeactivate(t *testing.T) {
	setupTestConfig(t)

	r := newUserRouter()
	w := doJSON(r, "PUT", "/users/admin-1", `{"active":false}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), CodeCannotModifySelf)
}

func TestUserHandler_UpdateUser_NoFields(t *testing.T) {
	setupTestConfig(t)
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	// 用户存在
	mock.ExpectQuery("SELECT count.* FROM `users`").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	r := newUserRouter()
	w := doJSON(r, "PUT", "/users/user-2", `{}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), CodeNoUpdateFields)
}

func TestUserHandler_UpdateUser_NotFound(t *testing.T) {
	setupTestConfig(t)
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT count.* FROM `users`").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	r := newUserRouter()
	w := doJSON(r, "PUT", "/users/ghost", `{"name":"新名字"}`)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "USER_NOT_FOUND")
}

func TestUserHandler_CreateUser_EmailExists(t *testing.T) {
	setupTestConfig(t)
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT count.* FROM `users`").
		WithArgs("dup@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	r := newUserRouter()
	w := doJSON(r, "POST", "/users",
		`{"email":"dup@example.com","password":"secret123","name":"重复","role":"viewer"}`)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), CodeEmailExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserHandler_CreateUser_InvalidRole(t *testing.T) {
	setupTestConfig(t)

	r := newUserRouter()
	w := doJSON(r, "POST", "/users",
		`{"email":"a@example.com","password":"secret123","name":"甲","role":"superuser"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), CodeValidationError)
	assert.Contains(t, w.Body.String(), "role")
}

func TestUserHandler_ListUsers_Pagination(t *testing.T) {
	setupTestConfig(t)
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT count.* FROM `users`").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(25))

	rows := sqlmock.NewRows([]string{"id", "email", "created_at", "name", "phone", "role", "active", "avatar", "last_login_at"})
	for i := 0; i < 10; i++ {
		rows.AddRow("user-x", "x@example.com", "2026-01-01 10:00:00", "某人", nil, "viewer", true, nil, nil)
	}
	mock.ExpectQuery("SELECT users.id.* FROM `users`").
		WillReturnRows(rows)

	r := newUserRouter()
	w := doJSON(r, "GET", "/users?page=2&limit=10", "")

	assert.Equal(t, http.StatusOK, w.Code)

	var resp PageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.Pagination.Page)
	assert.Equal(t, 10, resp.Pagination.Limit)
	assert.Equal(t, int64(25), resp.Pagination.Total)
	assert.Equal(t, 3, resp.Pagination.TotalPages)
	require.NoError(t, mock.ExpectationsWereMet())
}
