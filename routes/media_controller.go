package routes

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"

	"github.com/mbolis/field-survey/app"
	"github.com/mbolis/field-survey/httpx"
	"github.com/mbolis/field-survey/log"
	"github.com/mbolis/field-survey/storage"
)

func ServeMedia(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "*")

		blob, err := app.Media.Open(r.Context(), key)
		switch {
		case errors.Is(err, storage.ErrInvalidKey):
			httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "media.key", "Invalid media path %q", key)
			return
		case errors.Is(err, storage.ErrNotFound):
			httpx.LogNotFound(w, r, "media.open", key, "Media not found")
			return
		case err != nil:
			httpx.LogInternalError(w, r, "media.open", err)
			return
		}
		defer blob.Close()

		contentType := mime.TypeByExtension(path.Ext(key))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		w.Header().Set("content-type", contentType)
		w.Header().Set("x-content-type-options", "nosniff")
		w.Header().Set("content-security-policy", "sandbox")

		if _, err = io.Copy(w, blob); err != nil {
			log.Debugf("media.copy: %s: %s", key, err)
		}
	}
}
