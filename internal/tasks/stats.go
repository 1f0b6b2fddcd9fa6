// Package tasks runs background jobs, currently the stats snapshot collector.
package tasks

import (
	"context"
	"fmt"
	"time"

	"faveswitch/internal/backends"
	"faveswitch/internal/logging"
	"faveswitch/internal/media"
	"faveswitch/internal/store"

	"github.com/google/uuid"
)

// ServerSnapshot is one server's contribution to a stats snapshot. Unreachable
// servers are recorded with the error instead of aborting the run.
type ServerSnapshot struct {
	ServerID  string `json:"server_id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Reachable bool   `json:"reachable"`
	Error     string `json:"error,omitempty"`
	Users     int    `json:"users"`
	Libraries int    `json:"libraries"`
	Version   string `json:"version,omitempty"`
}

type Snapshot struct {
	TakenAt string           `json:"taken_at"`
	Servers []ServerSnapshot `json:"servers"`
}

// Collector takes stats snapshots across all enabled servers.
type Collector struct {
	Store *store.Store
	Pool  *media.TransportPool
}

// StartJob creates a job record and runs collection in the background.
func (c *Collector) StartJob() (store.StatsJob, error) {
	job, err := c.Store.CreateStatsJob(uuid.NewString())
	if err != nil {
		return store.StatsJob{}, err
	}
	go c.run(job.ID)
	return job, nil
}

func (c *Collector) run(jobID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := c.Store.UpdateStatsJob(jobID, store.JobRunning, 0, "collecting"); err != nil {
		logging.Error("stats job update failed", "job_id", jobID, "error", err)
		return
	}

	servers, err := c.Store.ListEnabledServers()
	if err != nil {
		_ = c.Store.FinishStatsJob(jobID, store.JobFailed, err.Error(), Snapshot{TakenAt: time.Now().UTC().Format(time.RFC3339)})
		return
	}

	snapshot := Snapshot{TakenAt: time.Now().UTC().Format(time.RFC3339)}
	for i, rec := range servers {
		snapshot.Servers = append(snapshot.Servers, c.collectServer(ctx, rec))
		progress := (i + 1) * 100 / len(servers)
		msg := fmt.Sprintf("collected %d/%d servers", i+1, len(servers))
		if err := c.Store.UpdateStatsJob(jobID, store.JobRunning, progress, msg); err != nil {
			logging.Warn("stats job progress update failed", "job_id", jobID, "error", err)
		}
	}

	if err := c.Store.FinishStatsJob(jobID, store.JobCompleted, "done", snapshot); err != nil {
		logging.Error("stats job finish failed", "job_id", jobID, "error", err)
	}
}

func (c *Collector) collectServer(ctx context.Context, rec store.ServerRecord) ServerSnapshot {
	snap := ServerSnapshot{ServerID: rec.ID, Name: rec.Name, Type: string(rec.Type)}

	backend, err := backends.New(rec.ServerConfig, c.Pool)
	if err != nil {
		snap.Error = err.Error()
		return snap
	}

	info, err := backend.GetServerInfo(ctx)
	if err != nil {
		snap.Error = err.Error()
		return snap
	}
	snap.Reachable = true
	snap.Version = info.Version
	if snap.Name == "" {
		snap.Name = info.Name
	}

	if users, err := backend.GetUsers(ctx); err == nil {
		snap.Users = len(users)
	} else {
		logging.Warn("stats user listing failed", "server_id", rec.ID, "error", err)
	}
	if libs, err := backend.GetLibraries(ctx); err == nil {
		snap.Libraries = len(libs)
	} else {
		logging.Warn("stats library listing failed", "server_id", rec.ID, "error", err)
	}
	return snap
}

// RunPeriodic takes a snapshot every interval until ctx is cancelled.
func (c *Collector) RunPeriodic(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.StartJob(); err != nil {
				logging.Error("periodic stats job failed to start", "error", err)
			}
		}
	}
}
