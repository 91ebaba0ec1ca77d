package health

import (
	"net/http"
	"vetlink/lib/api/response"

	"github.com/go-chi/render"
)

func Check() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, response.Ok(map[string]string{"status": "ok"}))
	}
}
