package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mbolis/field-survey/app"
	"github.com/mbolis/field-survey/config"
	"github.com/mbolis/field-survey/database"
	"github.com/mbolis/field-survey/log"
	"github.com/mbolis/field-survey/model"
	"github.com/mbolis/field-survey/routes"
	"github.com/mbolis/field-survey/storage"
)

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		log.Fatal("main.config:", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	if cfg.LogFile != "" {
		defer log.RotateTo(cfg.LogFile).Close()
	}

	db, err := database.Open(cfg.DBUrl)
	if err != nil {
		log.Fatal("main.db.open:", err)
	}
	defer db.Close()

	if len(cfg.Args) > 0 {
		if err = runCommand(db, cfg.Args); err != nil {
			log.Fatal("main.command:", err)
		}
		return
	}

	media, err := openMedia(cfg)
	if err != nil {
		log.Fatal("main.media:", err)
	}

	handler := routes.Wire(app.New(cfg, db, media))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = runServer(ctx, cfg, handler)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("main.server:", err)
	}
}

func openMedia(cfg config.Config) (storage.Store, error) {
	if cfg.MediaBucket != "" {
		log.Infof("Storing media in s3://%s (%s)", cfg.MediaBucket, cfg.MediaRegion)
		return storage.NewS3(cfg.MediaBucket, cfg.MediaRegion)
	}
	log.Infof("Storing media in %s", cfg.MediaDir)
	return storage.NewLocal(cfg.MediaDir)
}

func runCommand(db *database.Store, args []string) error {
	switch args[0] {
	case "adduser":
		if len(args) < 3 || len(args) > 4 {
			return errors.New("usage: adduser <email> <password> [role]")
		}
		role := model.RoleEnumerator
		if len(args) == 4 {
			role = strings.ToUpper(args[3])
		}
		return addUser(db, args[1], args[2], role)
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func addUser(db *database.Store, email, password, role string) error {
	switch role {
	case model.RoleOwner, model.RoleManager, model.RoleEnumerator:
	default:
		return fmt.Errorf("invalid role %q", role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	u := model.User{Email: email, Role: role}
	if err = db.CreateUser(context.Background(), &u, hash); err != nil {
		return err
	}
	log.Infof("Created %s user %s (%s)", role, email, u.ID)
	return nil
}

func runServer(ctx context.Context, cfg config.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  time.Minute,
		WriteTimeout: 2 * time.Minute,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("Listening on " + cfg.Url())
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
