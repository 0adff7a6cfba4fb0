//go:build integration

package repositories

import (
	"context"
	"testing"

	"github.com/preceptorhub/preceptor-engine/pkg/testhelpers"
)

var allTables = []string{
	"reviews", "preceptor_programs", "preceptor_sites", "preceptor_schools",
	"preceptors", "school_programs", "experience_types", "rotation_types",
	"program_types", "practice_sites", "schools", "waitlist",
}

// repoTestContext holds the shared container and a scoped context for one test.
type repoTestContext struct {
	t        *testing.T
	engineDB *testhelpers.EngineDB
	ctx      context.Context
}

// setupRepoTest empties every table and returns a scoped context.
// The scope is released when the test ends.
func setupRepoTest(t *testing.T) *repoTestContext {
	engineDB := testhelpers.GetEngineDB(t)
	engineDB.Truncate(t, allTables...)

	ctx, cleanup := engineDB.Scoped(t)
	t.Cleanup(cleanup)

	return &repoTestContext{t: t, engineDB: engineDB, ctx: ctx}
}
