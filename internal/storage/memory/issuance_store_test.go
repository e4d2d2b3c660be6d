package memory_test

import (
	"testing"

	"github.com/getantonio/tokenhub/internal/storage"
	"github.com/getantonio/tokenhub/internal/storage/memory"
	"github.com/getantonio/tokenhub/internal/storage/storagetest"
)

func TestIssuanceStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.IssuanceStore {
		return memory.NewIssuanceStore()
	})
}
