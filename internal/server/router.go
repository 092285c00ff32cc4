package server

import (
	"net/http"

	"zengallery/internal/gallery"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter assembles the full HTTP surface.
func NewRouter(h *Handler, logger gallery.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Range", "X-Request-ID"},
		ExposedHeaders: []string{"Content-Range", "Accept-Ranges", "ETag"},
		MaxAge:         300,
	}))

	r.Get("/health", h.Health)

	r.Route("/api/files", func(r chi.Router) {
		r.Get("/", h.ListFiles)
		r.Post("/", h.UploadFile)

		r.Route("/multipart", func(r chi.Router) {
			r.Post("/create", h.CreateMultipart)
			r.Put("/upload", h.UploadPart)
			r.Post("/complete", h.CompleteMultipart)
			r.Delete("/abort", h.AbortMultipart)
		})

		r.Put("/{identifier}", h.UpdateFile)
		r.Delete("/{identifier}", h.DeleteFile)
	})

	r.Get("/files/{identifier}", h.GetFile)
	r.Get("/blob/files/{identifier}", h.ServeOriginal)
	r.Get("/blob/cache/{level}/{identifier}", h.ServeVariant)

	return r
}
