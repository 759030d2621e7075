package main

import (
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/seedlight/beacon/content"
	"github.com/seedlight/beacon/db"
)

func SetupInBackground(store db.Store, client *content.Client) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, err
	}

	if _, err := s.NewJob(
		gocron.DurationJob(time.Minute*5),
		gocron.NewTask(content.SyncAll, store, client),
	); err != nil {
		return nil, err
	}

	// Image fetches are slow so colour extraction runs on its own cadence
	if _, err := s.NewJob(
		gocron.DurationJob(time.Minute*30),
		gocron.NewTask(content.ExtractGalleryColours, store),
	); err != nil {
		return nil, err
	}

	return s, nil
}
