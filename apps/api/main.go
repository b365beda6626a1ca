package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/jkamau/darasa/apps/api/echo"
	"github.com/jkamau/darasa/core"
	"github.com/jkamau/darasa/core/assignment"
	"github.com/jkamau/darasa/core/submission"
	"github.com/jkamau/darasa/core/user"
	emailsvc "github.com/jkamau/darasa/services/email"
	logsvc "github.com/jkamau/darasa/services/logger"
	"github.com/jkamau/darasa/storage/database"
	sqlxrepos "github.com/jkamau/darasa/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	var logger core.Logger
	if core.Conf.RollbarToken != "" {
		rollbarLogger := logsvc.NewRollbarLogger(std, core.Conf)
		rollbarLogger.Enable(!core.Conf.Debug)
		logger = rollbarLogger
	} else {
		logger = logsvc.NewStdLogger(std)
	}

	db, err := setUpDB()
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error("closing database", err)
		}
	}()

	var mailSvc core.EmailService
	if core.Conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}

	usrRepo := sqlxrepos.NewUserRepository(db)
	assRepo := sqlxrepos.NewAssignmentRepository(db)
	subRepo := sqlxrepos.NewSubmissionRepository(db)

	usrSvc := user.NewService(usrRepo)
	assSvc := assignment.NewService(assRepo)
	subSvc := submission.NewService(subRepo, assRepo, usrRepo, mailSvc, logger)

	// =========================================================================
	// Start API Service

	logger.Info(fmt.Sprintf("Application initializing : version %q", core.Conf.Build))
	defer logger.Info("Application stopped")

	server := echoapi.NewServer(
		&echoapi.Options{
			Address:       core.Conf.ServerAddress(),
			Logger:        logger,
			UserSvc:       usrSvc,
			AssignmentSvc: assSvc,
			SubmissionSvc: subSvc,
		},
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-serverErrors:
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), core.Conf.Server.ShutdownTimeout)
		defer cancel()

		if err = server.Shutdown(ctx); err != nil {
			logger.Fatal(fmt.Sprintf("could not stop server gracefully: %v", err), err)
		}
	}
}

func setUpDB() (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(core.Conf); err != nil {
		return nil, err
	}

	db, err := database.Open(core.Conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
