package api

import (
	"github.com/go-chi/chi/v5"
)

// Handlers groups the handlers mounted under /api.
type Handlers struct {
	Pools *PoolHandler
	Quiz  *QuizHandler
	Stats *StatsHandler
}

// RegisterRoutes mounts every authenticated endpoint on r. The caller adds
// the authentication middleware and the /api prefix.
func RegisterRoutes(r chi.Router, h Handlers) {
	r.Route("/pools", func(r chi.Router) {
		r.Post("/", h.Pools.CreatePool)
		r.Get("/", h.Pools.ListPools)
		r.Get("/{id}", h.Pools.GetPool)
		r.Delete("/{id}", h.Pools.DeletePool)
		r.Post("/{id}/concepts", h.Pools.AddConcepts)
	})
	r.Post("/generate", h.Pools.Generate)

	r.Get("/questions", h.Quiz.GetQuestions)
	r.Get("/questions/global", h.Quiz.GetGlobalQuestions)

	r.Route("/sittings", func(r chi.Router) {
		r.Post("/", h.Quiz.CreateSitting)
		r.Get("/{id}", h.Quiz.GetSitting)
		r.Post("/{id}/complete", h.Quiz.CompleteSitting)
		r.Post("/{id}/abandon", h.Quiz.AbandonSitting)
		r.Post("/{id}/acknowledge", h.Quiz.AcknowledgeSitting)
	})

	r.Post("/submit", h.Quiz.Submit)
	r.Post("/submissions/{id}/retry", h.Quiz.RetrySubmission)
	r.Get("/results", h.Quiz.GetResults)

	r.Get("/progress", h.Stats.Progress)
	r.Get("/dashboard", h.Stats.Dashboard)
}
