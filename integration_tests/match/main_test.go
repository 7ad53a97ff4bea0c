package match_integration_tests

import (
	"os"
	"testing"

	"github.com/Black-And-White-Club/tourney-scoring/integration_tests/testutils"
)

var env *testutils.TestEnvironment

func TestMain(m *testing.M) {
	os.Exit(testutils.RunMain(m, testutils.Options{}, &env))
}
