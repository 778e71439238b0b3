package app

import (
	"github.com/go-chi/oauth"

	"github.com/mbolis/field-survey/config"
	"github.com/mbolis/field-survey/database"
	"github.com/mbolis/field-survey/httpx"
	"github.com/mbolis/field-survey/storage"
	"github.com/mbolis/field-survey/submission"
)

type App struct {
	*database.Store
	*oauth.BearerServer
	config.Config

	Media       storage.Store
	Submissions *submission.Service
}

// New wires the services shared by every handler.
func New(cfg config.Config, store *database.Store, media storage.Store) App {
	return App{
		Store:        store,
		BearerServer: httpx.NewBearerServer(store, cfg.TokenSecret, cfg.TokenTTL),
		Config:       cfg,
		Media:        media,
		Submissions:  submission.NewService(submission.FromDB(store), media),
	}
}
