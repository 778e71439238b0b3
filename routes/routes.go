package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mbolis/field-survey/app"
	"github.com/mbolis/field-survey/routes/middlewares"
)

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.RequestID, middlewares.RequestLogger, middleware.Recoverer)

	root.Get("/healthz", Health(app))

	root.With(middlewares.RateLimit(12*time.Second, 5)).Post("/login", Login(app))
	root.Post("/refresh", Refresh(app))

	root.Group(func(r chi.Router) {
		r.Use(middlewares.Authorize(app.Config.TokenSecret))

		bulk := BulkSubmit(app)
		r.Post("/submissions/bulk/", bulk)
		r.Post("/submissions/bulk", bulk)

		r.Get("/questionnaires", ListQuestionnaires(app))
		r.Get("/questionnaires/{id}", GetQuestionnaire(app))
		r.Post("/questionnaires/{id}/evaluate", EvaluateQuestionnaire(app))

		r.Get("/media/*", ServeMedia(app))

		r.Group(func(r chi.Router) {
			r.Use(middlewares.Admin)

			r.Post("/questionnaires", CreateQuestionnaire(app))
			r.Delete("/questionnaires/{id}", DeleteQuestionnaire(app))
			r.Post("/questionnaires/{id}/skip-logics", CreateSkipLogic(app))
			r.Post("/questionnaires/{id}/filter-logics", CreateFilterLogic(app))

			r.Get("/questionnaires/{id}/submissions", ListSubmissions(app))
			r.Get("/submissions/{id}", GetSubmission(app))
		})
	})

	return root
}
