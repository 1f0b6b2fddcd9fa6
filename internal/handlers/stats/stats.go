// Package stats exposes snapshot collection jobs over HTTP.
package stats

import (
	"strconv"

	"faveswitch/internal/media"
	"faveswitch/internal/store"
	"faveswitch/internal/tasks"

	"github.com/gofiber/fiber/v3"
)

func respondError(c fiber.Ctx, err error) error {
	return c.Status(media.StatusCode(err)).JSON(fiber.Map{"error": err.Error()})
}

// Refresh kicks off a snapshot collection run and returns the job id
// immediately; collection happens in the background.
func Refresh(collector *tasks.Collector) fiber.Handler {
	return func(c fiber.Ctx) error {
		job, err := collector.StartJob()
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusAccepted).JSON(job)
	}
}

func Job(st *store.Store) fiber.Handler {
	return func(c fiber.Ctx) error {
		job, err := st.GetStatsJob(c.Params("jobId"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(job)
	}
}

// Latest returns the most recent snapshot job, completed or not.
func Latest(st *store.Store) fiber.Handler {
	return func(c fiber.Ctx) error {
		job, err := st.LatestStatsJob()
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(job)
	}
}

func Jobs(st *store.Store) fiber.Handler {
	return func(c fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit"))
		jobs, err := st.ListStatsJobs(limit)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(jobs)
	}
}
