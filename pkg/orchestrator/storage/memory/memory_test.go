package memory

import (
	"testing"

	"github.com/sentinel-bridge/sentinel/pkg/orchestrator/storage"
)

func TestInMemorySubmissionStore(t *testing.T) {
	suite := &storage.TestSuite{
		NewStore: func() (storage.SubmissionStore, error) {
			return NewInMemorySubmissionStore(), nil
		},
	}
	suite.Run(t)
}
