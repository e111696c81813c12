package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"

	"github.com/msomdec/kormkit/internal/converter"
	"github.com/msomdec/kormkit/internal/domain"
	"github.com/msomdec/kormkit/internal/korm"
	"github.com/msomdec/kormkit/internal/provider"
)

const maxSettingBytes = 1 << 20

// appSetting is one row of the app_settings table of the default database.
type appSetting struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// SettingsHandler serves arbitrary JSON values stored as text in the
// app_settings table of the default database.
type SettingsHandler struct {
	svc  *korm.Services
	conv converter.Converter
}

// NewSettingsHandler creates a SettingsHandler.
func NewSettingsHandler(svc *korm.Services) *SettingsHandler {
	// NewJSON only fails for a nil type.
	conv, _ := converter.NewJSON(reflect.TypeFor[any]())
	return &SettingsHandler{svc: svc, conv: conv}
}

// HandleList returns every stored setting ordered by key.
func (h *SettingsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	f, release := requestFactory(r, h.svc)
	defer release()
	db, err := defaultDatabase(r, f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Default database unavailable")
		return
	}

	rows, err := db.SQL().QueryContext(r.Context(), "SELECT key, value FROM app_settings ORDER BY key")
	if err != nil {
		slog.Error("list settings", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list settings")
		return
	}
	defer rows.Close()

	settings := []appSetting{}
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to list settings")
			return
		}
		value, err := h.conv.Convert(raw)
		if err != nil {
			slog.Error("decode setting", "key", key, "error", err)
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("Setting %q is not valid JSON", key))
			return
		}
		settings = append(settings, appSetting{Key: key, Value: value})
	}
	if err := rows.Err(); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// HandleGet returns the setting named by the {key} path value.
func (h *SettingsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	f, release := requestFactory(r, h.svc)
	defer release()
	db, err := defaultDatabase(r, f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Default database unavailable")
		return
	}

	key := r.PathValue("key")
	ph := provider.Placeholder(db.Provider())
	var value converter.JSON[any]
	err = db.SQL().QueryRowContext(r.Context(), "SELECT value FROM app_settings WHERE key = "+ph(1), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "Setting not found")
		return
	}
	if err != nil {
		slog.Error("get setting", "key", key, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to read setting")
		return
	}
	writeJSON(w, http.StatusOK, appSetting{Key: key, Value: value.V})
}

// HandlePut stores the JSON request body under the {key} path value,
// replacing any previous value.
func (h *SettingsHandler) HandlePut(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSettingBytes)
	var value any
	if err := json.NewDecoder(r.Body).Decode(&value); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	f, release := requestFactory(r, h.svc)
	defer release()
	db, err := defaultDatabase(r, f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Default database unavailable")
		return
	}

	key := r.PathValue("key")
	ph := provider.Placeholder(db.Provider())
	query := fmt.Sprintf(
		"INSERT INTO app_settings (key, value) VALUES (%s, %s) ON CONFLICT (key) DO UPDATE SET value = excluded.value",
		ph(1), ph(2),
	)
	if _, err := db.SQL().ExecContext(r.Context(), query, key, converter.NewJSONValue(value)); err != nil {
		slog.Error("put setting", "key", key, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to store setting")
		return
	}
	writeJSON(w, http.StatusOK, appSetting{Key: key, Value: value})
}

func defaultDatabase(r *http.Request, f *korm.Factory) (domain.Database, error) {
	db, err := f.Default(r.Context())
	if err != nil {
		slog.Error("open default database", "error", err)
		return nil, err
	}
	return db, nil
}
