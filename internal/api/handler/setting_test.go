package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/torvik/resellerpanel/internal/core"
	"github.com/torvik/resellerpanel/internal/model"
)

func settingScan(key, value string) func(dest ...any) error {
	return func(dest ...any) error {
		*(dest[0].(*string)) = key
		*(dest[1].(*string)) = value
		*(dest[2].(*time.Time)) = time.Now()
		return nil
	}
}

func TestSettingList_MasksSecrets(t *testing.T) {
	db := &handlerMockDB{}
	db.On("Query", mock.Anything, mock.AnythingOfType("string"), mock.Anything).Return(&handlerMockRows{
		scanFuncs: []func(dest ...any) error{
			settingScan(model.SettingACMEEmail, "ops@panel.net"),
			settingScan(model.SettingCloudflareAPIToken, "cf-secret-token"),
			settingScan(model.SettingGoogleServiceAccountJSON, `{"type":"service_account"}`),
		},
	}, nil)

	h := NewSetting(core.NewSettingsService(db))
	rec := httptest.NewRecorder()

	h.List(rec, newRequest(http.MethodGet, "/settings", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var settings []model.Setting
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &settings))
	require.Len(t, settings, 3)

	byKey := map[string]string{}
	for _, s := range settings {
		byKey[s.Key] = s.Value
	}
	assert.Equal(t, "ops@panel.net", byKey[model.SettingACMEEmail])
	assert.Equal(t, "********", byKey[model.SettingCloudflareAPIToken])
	assert.Equal(t, "********", byKey[model.SettingGoogleServiceAccountJSON])
}

func TestSettingPut_EmptyKey(t *testing.T) {
	h := NewSetting(nil)
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPut, "/settings/", map[string]any{"value": "x"})
	r = withChiURLParam(r, "key", "")

	h.Put(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSettingPut_MissingValue(t *testing.T) {
	h := NewSetting(nil)
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPut, "/settings/ACME_EMAIL", map[string]any{})
	r = withChiURLParam(r, "key", "ACME_EMAIL")

	h.Put(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "validation error")
}
