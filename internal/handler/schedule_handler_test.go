package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-records-api/internal/models"
)

func TestScheduleUploadReadsEveryFile(t *testing.T) {
	svcs := newTestServices()
	r := newTestRouter(svcs, 0)

	rec := doMultipart(t, r, "/api/v1/admin/schedules", "admin",
		formFile{field: "files", filename: "EDT-INFO4-S1.xlsx", content: []byte("sheet-1")},
		formFile{field: "files", filename: "EDT-BIO3-S2.xlsx", content: []byte("sheet-2")},
	)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, svcs.schedules.files, 2)
	assert.Equal(t, "EDT-INFO4-S1.xlsx", svcs.schedules.files[0].Filename)
	assert.Equal(t, []byte("sheet-2"), svcs.schedules.files[1].Data)
}

func TestScheduleUploadRequiresMultipart(t *testing.T) {
	r := newTestRouter(newTestServices(), 0)

	rec := doJSON(r, http.MethodPost, "/api/v1/admin/schedules", "admin", map[string]string{"file": "x"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScheduleUploadEnforcesLimit(t *testing.T) {
	svcs := newTestServices()
	r := newTestRouter(svcs, 3)

	rec := doMultipart(t, r, "/api/v1/admin/schedules", "admin",
		formFile{field: "files", filename: "EDT-INFO4-S1.xlsx", content: []byte("too large")})

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Nil(t, svcs.schedules.files)
}

func TestScheduleListPassesRole(t *testing.T) {
	svcs := newTestServices()
	r := newTestRouter(svcs, 0)

	rec := doJSON(r, http.MethodGet, "/api/v1/schedules", "student", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.RoleStudent, svcs.schedules.role)
}
