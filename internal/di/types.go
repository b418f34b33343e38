package di

import (
	"github.com/aristath/frontier/internal/database"
	"github.com/aristath/frontier/internal/modules/runs"
	"github.com/aristath/frontier/internal/modules/universe"
	"github.com/aristath/frontier/internal/publish"
)

// Container holds every wired dependency
type Container struct {
	RunsDB     *database.DB // nil when runs are not persisted
	RunsRepo   *runs.Repository
	Source     universe.Source
	Publisher  publish.Publisher
	RunService *runs.Service
}

// Options selects how a process uses the container
type Options struct {
	// Persist stores runs in the runs database
	Persist bool
	// FlatArtifacts writes allocation.json and frontier.json straight into the
	// output directory instead of per-run folders
	FlatArtifacts bool
}

// Close releases held resources
func (c *Container) Close() error {
	if c.RunsDB != nil {
		return c.RunsDB.Close()
	}
	return nil
}
